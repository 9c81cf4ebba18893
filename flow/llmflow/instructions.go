// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/agentflow/internal/pool"
	"github.com/go-a2a/agentflow/types"
)

// InstructionsLLMRequestProcessor appends the global instruction of the root
// agent and the instruction of the current agent to the request.
type InstructionsLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*InstructionsLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *InstructionsLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}
		rctx := types.NewReadOnlyContext(ictx)

		if root, ok := llmAgent.RootAgent().AsLLMAgent(); ok {
			si, bypass, err := root.CanonicalGlobalInstruction(ctx, rctx)
			if err != nil {
				yield(nil, fmt.Errorf("global instruction: %w", err))
				return
			}
			if si != "" {
				if !bypass {
					if si, err = InjectSessionState(ctx, si, ictx); err != nil {
						yield(nil, err)
						return
					}
				}
				request.AppendInstructions(si)
			}
		}

		si, bypass, err := llmAgent.CanonicalInstruction(ctx, rctx)
		if err != nil {
			yield(nil, fmt.Errorf("instruction: %w", err))
			return
		}
		if si == "" {
			return
		}
		if !bypass {
			if si, err = InjectSessionState(ctx, si, ictx); err != nil {
				yield(nil, err)
				return
			}
		}
		request.AppendInstructions(si)
	}
}

var templateVarRe = regexp.MustCompile(`\{+[^{}]*\}+`)

// InjectSessionState substitutes the {var} placeholders of template.
//
// A placeholder names a session state key, optionally followed by a path of
// ".field" and "[index]" segments, or an artifact as {artifact.file_name}. A
// trailing "?" makes it optional: a missing value then renders as the empty
// string instead of failing with [types.MissingContextVariableError].
// Placeholders which are not valid names are left as is.
func InjectSessionState(ctx context.Context, template string, ictx *types.InvocationContext) (string, error) {
	locs := templateVarRe.FindAllStringIndex(template, -1)
	if len(locs) == 0 {
		return template, nil
	}

	buf := pool.Buffer.Get()
	defer pool.Buffer.Put(buf)

	last := 0
	for _, loc := range locs {
		buf.WriteString(template[last:loc[0]])
		repl, err := replaceTemplateVar(ctx, template[loc[0]:loc[1]], ictx)
		if err != nil {
			return "", err
		}
		buf.WriteString(repl)
		last = loc[1]
	}
	buf.WriteString(template[last:])

	return buf.String(), nil
}

func replaceTemplateVar(ctx context.Context, token string, ictx *types.InvocationContext) (string, error) {
	name := strings.TrimSpace(strings.Trim(token, "{}"))
	name, optional := strings.CutSuffix(name, "?")

	if file, ok := strings.CutPrefix(name, "artifact."); ok {
		if ictx.ArtifactService == nil {
			return "", errors.New("artifact service is not initialized")
		}
		ses := ictx.Session
		part, err := ictx.ArtifactService.LoadArtifact(ctx, ses.AppName(), ses.UserID(), ses.ID(), file, types.LatestArtifactVersion)
		if err != nil {
			return "", fmt.Errorf("load artifact %q: %w", file, err)
		}
		if part == nil {
			if optional {
				return "", nil
			}
			return "", types.MissingContextVariableError("artifact." + file)
		}
		return part.Text, nil
	}

	key, path, ok := parseStatePath(name)
	if !ok {
		return token, nil
	}

	v, found := ictx.State()[key]
	for i := 0; found && i < len(path); i++ {
		v, found = lookupPath(v, path[i])
	}
	if !found || v == nil {
		if optional {
			return "", nil
		}
		return "", types.MissingContextVariableError(name)
	}

	return formatStateValue(v), nil
}

// parseStatePath splits a placeholder name into the state key and the path segments after it.
// Index segments are returned with their brackets.
func parseStatePath(name string) (key string, path []string, ok bool) {
	end := strings.IndexAny(name, ".[")
	if end < 0 {
		end = len(name)
	}
	key = name[:end]
	if !isValidStateName(key) {
		return "", nil, false
	}

	rest := name[end:]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			n := strings.IndexAny(rest, ".[")
			if n < 0 {
				n = len(rest)
			}
			if !isIdentifier(rest[:n]) {
				return "", nil, false
			}
			path = append(path, rest[:n])
			rest = rest[n:]
		case '[':
			n := strings.IndexByte(rest, ']')
			if n < 0 {
				return "", nil, false
			}
			if _, err := strconv.Atoi(rest[1:n]); err != nil {
				return "", nil, false
			}
			path = append(path, rest[:n+1])
			rest = rest[n+1:]
		default:
			return "", nil, false
		}
	}

	return key, path, true
}

func lookupPath(v any, seg string) (any, bool) {
	if idx, ok := strings.CutPrefix(seg, "["); ok {
		i, _ := strconv.Atoi(strings.TrimSuffix(idx, "]"))
		s, ok := v.([]any)
		if !ok {
			if ss, isStrings := v.([]string); isStrings && i >= 0 && i < len(ss) {
				return ss[i], true
			}
			return nil, false
		}
		if i < 0 || i >= len(s) {
			return nil, false
		}
		return s[i], true
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	field, ok := m[seg]
	return field, ok
}

func formatStateValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v, json.Deterministic(true))
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// isValidStateName reports whether varName is an identifier, optionally
// qualified by one of the state prefixes.
func isValidStateName(varName string) bool {
	prefix, name, found := strings.Cut(varName, ":")
	if !found {
		return isIdentifier(varName)
	}
	if !slices.Contains([]string{types.AppPrefix, types.UserPrefix, types.TempPrefix}, prefix+":") {
		return false
	}
	return isIdentifier(name)
}
