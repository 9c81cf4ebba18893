// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/tiendc/go-deepcopy"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/codeexecutor"
	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

// CodeExecutionRequestProcessor prepares the request for the code executor of the agent.
//
// Built-in executors enable the code execution tool of the model. Other
// executors get their past code blocks and results rendered as delimited text,
// and with data file optimization the csv inline data of the request is
// replaced by input files which are explored before the model is called.
type CodeExecutionRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*CodeExecutionRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *CodeExecutionRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}
		executor := llmAgent.CodeExecutor()
		if executor == nil {
			return
		}

		if builtin, ok := executor.(types.BuiltInCodeExecutor); ok {
			if err := builtin.ProcessLLMRequest(request); err != nil {
				yield(nil, err)
			}
			return
		}

		delimiters := executor.CodeBlockDelimiters()
		if len(delimiters) > 0 {
			for i, content := range request.Contents {
				c := &genai.Content{Role: content.Role, Parts: slices.Clone(content.Parts)}
				codeexecutor.ConvertCodeExecutionParts(c, delimiters[0], executor.ExecutionResultDelimiters())
				request.Contents[i] = c
			}
		}

		if !executor.OptimizeDataFile() {
			return
		}

		execCtx := codeexecutor.NewContext(types.NewState(ictx.State(), nil))
		processed := execCtx.ProcessedFileNames()
		for _, file := range extractAndReplaceInlineFiles(execCtx, request) {
			if slices.Contains(processed, file.Name) {
				continue
			}
			code := codeexecutor.DataFilePreprocessingCode(file)
			if code == "" {
				continue
			}

			codeContent := genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromText(fmt.Sprintf("Processing input file: `%s`", file.Name)),
				codeexecutor.BuildExecutableCodePart(code),
			}, genai.RoleModel)
			request.Contents = append(request.Contents, cloneContent(codeContent))
			codeEvent := types.NewEvent().
				WithInvocationID(ictx.InvocationID).
				WithAuthor(ictx.Agent.Name()).
				WithBranch(ictx.Branch).
				WithContent(codeContent)
			if !yield(codeEvent, nil) {
				return
			}

			result, err := executor.ExecuteCode(ctx, ictx, &types.CodeExecutionInput{
				Code:        code,
				InputFiles:  []*types.CodeExecutionFile{file},
				ExecutionID: executionID(ictx, executor, execCtx),
			})
			if err != nil {
				yield(nil, fmt.Errorf("explore data file %s: %w", file.Name, err))
				return
			}
			execCtx.UpdateExecutionResult(ictx.InvocationID, code, result.Stdout, result.Stderr)
			execCtx.AddProcessedFileNames(file.Name)

			resultEvent, err := postprocessCodeExecutionResult(ctx, ictx, execCtx, result)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(resultEvent, nil) {
				return
			}
			request.Contents = append(request.Contents, cloneContent(resultEvent.Content))
		}
	}
}

// CodeExecutionResponseProcessor runs the first code block of a model response
// with the code executor of the agent.
//
// The response is truncated after the code block and emitted as its own event,
// followed by an event carrying the execution result. The response content is
// then cleared so that the flow calls the model again with the result.
type CodeExecutionResponseProcessor struct{}

var _ types.LLMResponseProcessor = (*CodeExecutionResponseProcessor)(nil)

// Run implements [types.LLMResponseProcessor].
func (p *CodeExecutionResponseProcessor) Run(ctx context.Context, ictx *types.InvocationContext, response *types.LLMResponse) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		if response == nil || response.Content == nil || response.Partial {
			return
		}
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}
		executor := llmAgent.CodeExecutor()
		if executor == nil {
			return
		}
		if _, ok := executor.(types.BuiltInCodeExecutor); ok {
			return
		}

		execCtx := codeexecutor.NewContext(types.NewState(ictx.State(), nil))
		if execCtx.ErrorCount(ictx.InvocationID) >= executor.ErrorRetryAttempts() {
			logging.FromContext(ctx).WarnContext(ctx, "code execution retries exhausted",
				slog.String("agent", ictx.Agent.Name()),
				slog.Int("errors", execCtx.ErrorCount(ictx.InvocationID)),
			)
			return
		}

		content := &genai.Content{Role: response.Content.Role, Parts: slices.Clone(response.Content.Parts)}
		code := codeexecutor.ExtractCodeAndTruncateContent(content, executor.CodeBlockDelimiters())
		if code == "" {
			return
		}

		codeEvent := types.NewEvent().
			WithInvocationID(ictx.InvocationID).
			WithAuthor(ictx.Agent.Name()).
			WithBranch(ictx.Branch).
			WithContent(content)
		if !yield(codeEvent, nil) {
			return
		}

		result, err := executor.ExecuteCode(ctx, ictx, &types.CodeExecutionInput{
			Code:        code,
			InputFiles:  execCtx.InputFiles(),
			ExecutionID: executionID(ictx, executor, execCtx),
		})
		if err != nil {
			yield(nil, fmt.Errorf("execute code: %w", err))
			return
		}
		execCtx.UpdateExecutionResult(ictx.InvocationID, code, result.Stdout, result.Stderr)

		resultEvent, err := postprocessCodeExecutionResult(ctx, ictx, execCtx, result)
		if err != nil {
			yield(nil, err)
			return
		}
		if !yield(resultEvent, nil) {
			return
		}

		response.Content = nil
	}
}

// extractAndReplaceInlineFiles replaces the data file parts of the user
// contents by a file name placeholder and returns the files. Files seen for
// the first time are added to the input files of execCtx.
func extractAndReplaceInlineFiles(execCtx *codeexecutor.Context, request *types.LLMRequest) []*types.CodeExecutionFile {
	known := make(map[string]bool)
	for _, f := range execCtx.InputFiles() {
		known[f.Name] = true
	}

	var files []*types.CodeExecutionFile
	for i, content := range request.Contents {
		if content == nil || content.Role != genai.RoleUser {
			continue
		}
		var replaced *genai.Content
		for j, part := range content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			ext, ok := codeexecutor.DataFileExtensions[part.InlineData.MIMEType]
			if !ok {
				continue
			}

			name := fmt.Sprintf("data_%d_%d%s", i+1, j+1, ext)
			if replaced == nil {
				replaced = &genai.Content{Role: content.Role, Parts: slices.Clone(content.Parts)}
			}
			replaced.Parts[j] = genai.NewPartFromText(fmt.Sprintf("\nAvailable file: `%s`\n", name))

			file := &types.CodeExecutionFile{
				Name:     name,
				Content:  slices.Clone(part.InlineData.Data),
				MIMEType: part.InlineData.MIMEType,
			}
			files = append(files, file)
			if !known[name] {
				execCtx.AddInputFiles(file)
				known[name] = true
			}
		}
		if replaced != nil {
			request.Contents[i] = replaced
		}
	}

	return files
}

// executionID returns the execution id of stateful executors, which defaults to the session id.
func executionID(ictx *types.InvocationContext, executor types.CodeExecutor, execCtx *codeexecutor.Context) string {
	if !executor.IsStateful() {
		return ""
	}
	if id := execCtx.ExecutionID(); id != "" {
		return id
	}
	id := ictx.Session.ID()
	execCtx.SetExecutionID(id)
	return id
}

// postprocessCodeExecutionResult builds the event of an execution result. It
// updates the error count of the invocation and saves the output files as artifacts.
func postprocessCodeExecutionResult(ctx context.Context, ictx *types.InvocationContext, execCtx *codeexecutor.Context, result *types.CodeExecutionResult) (*types.Event, error) {
	if result.Stderr != "" {
		execCtx.IncrementErrorCount(ictx.InvocationID)
	} else {
		execCtx.ResetErrorCount(ictx.InvocationID)
	}

	artifactDelta := make(map[string]int)
	if len(result.OutputFiles) > 0 && ictx.ArtifactService == nil {
		return nil, fmt.Errorf("save code execution output files: %w", types.ErrNoArtifactService)
	}
	for _, file := range result.OutputFiles {
		version, err := ictx.ArtifactService.SaveArtifact(ctx, ictx.AppName(), ictx.UserID(), ictx.Session.ID(), file.Name,
			genai.NewPartFromBytes(file.Content, file.MIMEType))
		if err != nil {
			return nil, fmt.Errorf("save code execution output %s: %w", file.Name, err)
		}
		artifactDelta[file.Name] = version
	}

	actions := types.NewEventActions().WithStateDelta(execCtx.StateDelta())
	if len(artifactDelta) > 0 {
		actions.WithArtifactDelta(artifactDelta)
	}

	event := types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(ictx.Agent.Name()).
		WithBranch(ictx.Branch).
		WithContent(genai.NewContentFromParts([]*genai.Part{
			codeexecutor.BuildCodeExecutionResultPart(result),
		}, genai.RoleModel)).
		WithActions(actions)
	return event, nil
}

func cloneContent(content *genai.Content) *genai.Content {
	var c genai.Content
	if err := deepcopy.Copy(&c, content); err != nil {
		return content
	}
	return &c
}
