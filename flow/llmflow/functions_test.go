// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/tool/tools"
	"github.com/go-a2a/agentflow/types"
)

// namedAgent satisfies types.Agent for code paths that only read the agent name.
type namedAgent struct {
	types.Agent
	name string
}

func (a namedAgent) Name() string { return a.name }

func TestMergeParallelFunctionResponseEvents(t *testing.T) {
	t.Parallel()

	scheme := &types.AuthScheme{Type: types.APIKeyCredentialTypes, In: "header", Name: "X-Key"}
	first := historyEvent(1, "inv", "agent", functionResponse("c1", "a", 1)).
		WithActions(&types.EventActions{
			StateDelta:           map[string]any{"shared": "first", "only_first": true},
			TransferToAgent:      "helper",
			RequestedAuthConfigs: map[string]*types.AuthConfig{"c1": {AuthScheme: scheme}},
		})
	second := historyEvent(2, "inv", "agent", functionResponse("c2", "b", 2)).
		WithActions(&types.EventActions{
			StateDelta:           map[string]any{"shared": "second", "only_second": true},
			TransferToAgent:      "other",
			Escalate:             true,
			RequestedAuthConfigs: map[string]*types.AuthConfig{"c2": {AuthScheme: scheme}},
		})

	merged, err := mergeParallelFunctionResponseEvents([]*types.Event{first, second})
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, resp := range merged.GetFunctionResponses() {
		ids = append(ids, resp.ID)
	}
	if diff := cmp.Diff([]string{"c1", "c2"}, ids); diff != "" {
		t.Errorf("response order mismatch (-want +got):\n%s", diff)
	}
	wantDelta := map[string]any{"shared": "first", "only_first": true, "only_second": true}
	if diff := cmp.Diff(wantDelta, merged.Actions.StateDelta); diff != "" {
		t.Errorf("state delta mismatch (-want +got):\n%s", diff)
	}
	if merged.Actions.TransferToAgent != "helper" {
		t.Errorf("TransferToAgent = %q, want the first one", merged.Actions.TransferToAgent)
	}
	if !merged.Actions.Escalate {
		t.Error("Escalate was lost")
	}
	if n := len(merged.Actions.RequestedAuthConfigs); n != 2 {
		t.Errorf("got %d requested auth configs, want the union of 2", n)
	}
	if merged.Author != "agent" || merged.InvocationID != "inv" || !merged.Timestamp.Equal(first.Timestamp) {
		t.Errorf("merged event metadata = (%s, %s, %v), want the first event's", merged.Author, merged.InvocationID, merged.Timestamp)
	}
	if merged.ID == first.ID {
		t.Error("merged event reuses the id of the first event")
	}

	single, err := mergeParallelFunctionResponseEvents([]*types.Event{first})
	if err != nil || single != first {
		t.Errorf("merging one event = (%p, %v), want the event itself", single, err)
	}
	if _, err := mergeParallelFunctionResponseEvents(nil); err == nil {
		t.Error("merging no events succeeded")
	}
}

func TestMergeParallelFunctionResponseEventsGrouping(t *testing.T) {
	t.Parallel()

	scheme := &types.AuthScheme{Type: types.APIKeyCredentialTypes, In: "header", Name: "X-Key"}
	newEvents := func() (a, b, c *types.Event) {
		a = historyEvent(1, "inv", "agent", functionResponse("c1", "a", 1)).
			WithActions(&types.EventActions{StateDelta: map[string]any{"k": "a", "a": 1}})
		b = historyEvent(2, "inv", "agent", functionResponse("c2", "b", 2)).
			WithActions(&types.EventActions{
				StateDelta:           map[string]any{"k": "b", "b": 2},
				TransferToAgent:      "billing",
				RequestedAuthConfigs: map[string]*types.AuthConfig{"c2": {AuthScheme: scheme}},
			})
		c = historyEvent(3, "inv", "agent", functionResponse("c3", "c", 3)).
			WithActions(&types.EventActions{
				StateDelta:           map[string]any{"k": "c", "c": 3},
				TransferToAgent:      "support",
				Escalate:             true,
				RequestedAuthConfigs: map[string]*types.AuthConfig{"c3": {AuthScheme: scheme}},
			})
		return a, b, c
	}

	a, b, c := newEvents()
	flat, err := mergeParallelFunctionResponseEvents([]*types.Event{a, b, c})
	if err != nil {
		t.Fatal(err)
	}

	a, b, c = newEvents()
	ab, err := mergeParallelFunctionResponseEvents([]*types.Event{a, b})
	if err != nil {
		t.Fatal(err)
	}
	nested, err := mergeParallelFunctionResponseEvents([]*types.Event{ab, c})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(flat.Content.Parts, nested.Content.Parts); diff != "" {
		t.Errorf("parts differ between groupings (-flat +nested):\n%s", diff)
	}
	wantDelta := map[string]any{"k": "a", "a": 1, "b": 2, "c": 3}
	for name, merged := range map[string]*types.Event{"flat": flat, "nested": nested} {
		if diff := cmp.Diff(wantDelta, merged.Actions.StateDelta); diff != "" {
			t.Errorf("%s state delta mismatch (-want +got):\n%s", name, diff)
		}
		if got := merged.Actions.TransferToAgent; got != "billing" {
			t.Errorf("%s TransferToAgent = %q, want the first one", name, got)
		}
		if !merged.Actions.Escalate {
			t.Errorf("%s lost Escalate", name)
		}
		if n := len(merged.Actions.RequestedAuthConfigs); n != 2 {
			t.Errorf("%s has %d requested auth configs, want 2", name, n)
		}
	}
}

func TestRemoveClientFunctionCallID(t *testing.T) {
	t.Parallel()

	content := genai.NewContentFromParts([]*genai.Part{
		functionCall(FunctionCallIDPrefix+"x", "a").Parts[0],
		functionCall("server-id", "b").Parts[0],
		functionResponse(FunctionCallIDPrefix+"x", "a", 1).Parts[0],
	}, genai.RoleModel)

	got := RemoveClientFunctionCallID(content)

	if id := got.Parts[0].FunctionCall.ID; id != "" {
		t.Errorf("client call id kept: %q", id)
	}
	if id := got.Parts[1].FunctionCall.ID; id != "server-id" {
		t.Errorf("server call id = %q, want it kept", id)
	}
	if id := got.Parts[2].FunctionResponse.ID; id != "" {
		t.Errorf("client response id kept: %q", id)
	}
	if content.Parts[0].FunctionCall.ID == "" {
		t.Error("input content was modified")
	}
}

func TestGenerateAuthEvent(t *testing.T) {
	t.Parallel()

	ses := session.NewSession("app", "user", "s1", nil, time.Now())
	ictx := types.NewInvocationContext(namedAgent{name: "secure"}, ses, nil, types.WithBranch("root.secure"))

	scheme := &types.AuthScheme{Type: types.HTTPCredentialTypes, Scheme: "bearer"}
	responseEvent := historyEvent(1, ictx.InvocationID, "secure", functionResponse("c9", "fetch", "pending")).
		WithActions(&types.EventActions{RequestedAuthConfigs: map[string]*types.AuthConfig{
			"c9": {AuthScheme: scheme},
			"c1": {AuthScheme: scheme},
		}})

	event, err := GenerateAuthEvent(ictx, responseEvent)
	if err != nil {
		t.Fatal(err)
	}

	calls := event.GetFunctionCalls()
	var targets []string
	for _, c := range calls {
		if c.Name != RequestEUCFunctionCallName {
			t.Errorf("call name = %q, want %q", c.Name, RequestEUCFunctionCallName)
		}
		targets = append(targets, c.Args["function_call_id"].(string))
	}
	if diff := cmp.Diff([]string{"c1", "c9"}, targets); diff != "" {
		t.Errorf("auth request targets mismatch (-want +got):\n%s", diff)
	}
	if len(event.LongRunningToolIDs) != 2 {
		t.Errorf("LongRunningToolIDs = %v, want both requests", event.LongRunningToolIDs)
	}
	if event.Branch != "root.secure" || event.Author != "secure" {
		t.Errorf("auth event (branch, author) = (%q, %q)", event.Branch, event.Author)
	}

	none, err := GenerateAuthEvent(ictx, historyEvent(2, ictx.InvocationID, "secure", functionResponse("c2", "fetch", 1)))
	if err != nil || none != nil {
		t.Errorf("GenerateAuthEvent() without requests = (%v, %v), want nil", none, err)
	}
}

func TestRunWithPolicy(t *testing.T) {
	t.Parallel()

	failing := func(calls *int, failures int) *tools.FunctionTool {
		ft, err := tools.NewFunctionTool("unstable", "Fails a few times.",
			func(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
				*calls++
				if *calls <= failures {
					return nil, errors.New("boom")
				}
				return "ok", nil
			})
		if err != nil {
			t.Fatal(err)
		}
		return ft
	}
	fast := &types.RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	tests := map[string]struct {
		policy    *types.RetryPolicy
		failures  int
		wantCalls int
		wantErr   bool
	}{
		"no policy runs once":        {policy: nil, failures: 1, wantCalls: 1, wantErr: true},
		"single attempt":             {policy: &types.RetryPolicy{MaxAttempts: 1}, failures: 0, wantCalls: 1},
		"retries until success":      {policy: fast, failures: 3, wantCalls: 4},
		"gives up after max attempt": {policy: fast, failures: 10, wantCalls: 4, wantErr: true},
		"disabled":                   {policy: &types.RetryPolicy{Disabled: true, MaxAttempts: 5}, failures: 1, wantCalls: 1, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var calls int
			result, err := runWithPolicy(t.Context(), failing(&calls, tt.failures), nil, nil, tt.policy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("runWithPolicy() error = %v, wantErr %t", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("tool called %d times, want %d", calls, tt.wantCalls)
			}
			if !tt.wantErr && result != "ok" {
				t.Errorf("result = %v, want ok", result)
			}
		})
	}
}

func TestRunWithPolicyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	ft, err := tools.NewFunctionTool("slow", "Cancels its own context.",
		func(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
			cancel()
			return nil, errors.New("interrupted")
		},
		tools.WithToolOptions(tool.WithRetryPolicy(types.DefaultRetryPolicy())))
	if err != nil {
		t.Fatal(err)
	}

	_, err = runWithPolicy(ctx, ft, nil, nil, types.DefaultRetryPolicy())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("runWithPolicy() error = %v, want context.Canceled", err)
	}
}

func TestToResultMap(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   any
		want map[string]any
	}{
		"nil":    {in: nil, want: nil},
		"map":    {in: map[string]any{"a": 1}, want: map[string]any{"a": 1}},
		"scalar": {in: 42, want: map[string]any{"result": 42}},
		"slice":  {in: []string{"x"}, want: map[string]any{"result": []string{"x"}}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, toResultMap(tt.in)); diff != "" {
				t.Errorf("toResultMap() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
