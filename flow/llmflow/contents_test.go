// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// historyEvent returns an event authored by author at baseTime+n seconds.
func historyEvent(n int, invocationID, author string, content *genai.Content) *types.Event {
	return types.NewEvent().
		WithInvocationID(invocationID).
		WithAuthor(author).
		WithContent(content).
		WithTimestamp(baseTime.Add(time.Duration(n) * time.Second))
}

func userText(text string) *genai.Content {
	return genai.NewContentFromText(text, genai.RoleUser)
}

func modelText(text string) *genai.Content {
	return genai.NewContentFromText(text, genai.RoleModel)
}

func functionCall(id, name string) *genai.Content {
	part := genai.NewPartFromFunctionCall(name, map[string]any{"q": "x"})
	part.FunctionCall.ID = id
	return genai.NewContentFromParts([]*genai.Part{part}, genai.RoleModel)
}

func functionResponse(id, name string, result any) *genai.Content {
	part := genai.NewPartFromFunctionResponse(name, map[string]any{"result": result})
	part.FunctionResponse.ID = id
	return genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser)
}

func TestGetContents(t *testing.T) {
	t.Parallel()

	compaction := historyEvent(3, "", "model", nil).
		WithActions(&types.EventActions{Compaction: &types.EventCompaction{
			StartTimestamp:   baseTime.Add(1 * time.Second),
			EndTimestamp:     baseTime.Add(2 * time.Second),
			CompactedContent: modelText("summary of the weather talk"),
		}})
	rewind := historyEvent(5, "inv-3", types.AuthorUser, nil).
		WithActions(&types.EventActions{RewindBeforeInvocationID: "inv-2"})

	tests := map[string]struct {
		branch string
		events []*types.Event
		want   []*genai.Content
	}{
		"plain history": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("hi")),
				historyEvent(2, "inv-1", "assistant", modelText("hello")),
			},
			want: []*genai.Content{userText("hi"), modelText("hello")},
		},
		"other agent reply is presented as context": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("hi")),
				historyEvent(2, "inv-1", "researcher", modelText("found it")),
			},
			want: []*genai.Content{
				userText("hi"),
				genai.NewContentFromParts([]*genai.Part{
					genai.NewPartFromText("For context:"),
					genai.NewPartFromText("[researcher] said: found it"),
				}, genai.RoleUser),
			},
		},
		"other agent thoughts are dropped": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("hi")),
				historyEvent(2, "inv-1", "researcher", genai.NewContentFromParts([]*genai.Part{{Text: "hmm", Thought: true}}, genai.RoleModel)),
			},
			want: []*genai.Content{userText("hi")},
		},
		"sibling branches are hidden": {
			branch: "fanout.right",
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("go")),
				historyEvent(2, "inv-1", "assistant", modelText("left answer")).WithBranch("fanout.left"),
				historyEvent(3, "inv-1", "assistant", modelText("shared")).WithBranch("fanout"),
				historyEvent(4, "inv-1", "assistant", modelText("right answer")).WithBranch("fanout.right"),
			},
			want: []*genai.Content{userText("go"), modelText("shared"), modelText("right answer")},
		},
		"state only and auth events are skipped": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("hi")),
				historyEvent(2, "inv-1", "assistant", nil).WithActions(types.NewEventActions().WithStateDelta(map[string]any{"k": "v"})),
				historyEvent(3, "inv-1", "assistant", functionCall("auth-1", RequestEUCFunctionCallName)),
			},
			want: []*genai.Content{userText("hi")},
		},
		"client function call ids are removed": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("weather?")),
				historyEvent(2, "inv-1", "assistant", functionCall(FunctionCallIDPrefix+"1", "get_weather")),
				historyEvent(3, "inv-1", "assistant", functionResponse(FunctionCallIDPrefix+"1", "get_weather", "sunny")),
			},
			want: []*genai.Content{
				userText("weather?"),
				functionCall("", "get_weather"),
				functionResponse("", "get_weather", "sunny"),
			},
		},
		"compacted range is replaced by its summary": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("weather?")),
				historyEvent(2, "inv-1", "assistant", modelText("sunny")),
				compaction,
				historyEvent(4, "inv-2", types.AuthorUser, userText("and tomorrow?")),
			},
			want: []*genai.Content{modelText("summary of the weather talk"), userText("and tomorrow?")},
		},
		"rewound invocations are skipped": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("first")),
				historyEvent(2, "inv-1", "assistant", modelText("one")),
				historyEvent(3, "inv-2", types.AuthorUser, userText("second")),
				historyEvent(4, "inv-2", "assistant", modelText("two")),
				rewind,
				historyEvent(6, "inv-4", types.AuthorUser, userText("third")),
			},
			want: []*genai.Content{userText("first"), modelText("one"), userText("third")},
		},
		"late response of a long running call is moved next to the call": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("approve?")),
				historyEvent(2, "inv-1", "assistant", functionCall("op-1", "ask_approval")),
				historyEvent(3, "inv-1", "assistant", modelText("waiting for approval")),
				historyEvent(4, "inv-2", types.AuthorUser, functionResponse("op-1", "ask_approval", "approved")),
			},
			want: []*genai.Content{
				userText("approve?"),
				functionCall("op-1", "ask_approval"),
				functionResponse("op-1", "ask_approval", "approved"),
			},
		},
		"async responses in history follow their calls": {
			events: []*types.Event{
				historyEvent(1, "inv-1", types.AuthorUser, userText("approve?")),
				historyEvent(2, "inv-1", "assistant", functionCall("op-1", "ask_approval")),
				historyEvent(3, "inv-1", "assistant", modelText("waiting")),
				historyEvent(4, "inv-2", types.AuthorUser, functionResponse("op-1", "ask_approval", "approved")),
				historyEvent(5, "inv-3", types.AuthorUser, userText("status?")),
			},
			want: []*genai.Content{
				userText("approve?"),
				functionCall("op-1", "ask_approval"),
				functionResponse("op-1", "ask_approval", "approved"),
				modelText("waiting"),
				userText("status?"),
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := getContents(tt.branch, tt.events, "assistant")
			if err != nil {
				t.Fatalf("getContents() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("getContents() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetCurrentTurnContents(t *testing.T) {
	t.Parallel()

	events := []*types.Event{
		historyEvent(1, "inv-1", types.AuthorUser, userText("old question")),
		historyEvent(2, "inv-1", "assistant", modelText("old answer")),
		historyEvent(3, "inv-2", types.AuthorUser, userText("new question")),
		historyEvent(4, "inv-2", "assistant", functionCall("c-1", "lookup")),
		historyEvent(5, "inv-2", "assistant", functionResponse("c-1", "lookup", 42)),
	}

	got, err := getCurrentTurnContents("", events, "assistant")
	if err != nil {
		t.Fatal(err)
	}
	want := []*genai.Content{
		userText("new question"),
		functionCall("c-1", "lookup"),
		functionResponse("c-1", "lookup", 42),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("getCurrentTurnContents() mismatch (-want +got):\n%s", diff)
	}
}

func TestRearrangeLatestFunctionResponseMismatch(t *testing.T) {
	t.Parallel()

	both := genai.NewContentFromParts([]*genai.Part{
		functionResponse("op-1", "ask", "a").Parts[0],
		functionResponse("op-2", "ask", "b").Parts[0],
	}, genai.RoleUser)
	events := []*types.Event{
		historyEvent(1, "inv-1", "assistant", functionCall("op-1", "ask")),
		historyEvent(2, "inv-1", "assistant", functionCall("op-2", "ask")),
		historyEvent(3, "inv-1", "assistant", modelText("waiting")),
		historyEvent(4, "inv-2", types.AuthorUser, both),
	}

	if _, err := rearrangeEventsForLatestFunctionResponse(events); err == nil {
		t.Error("responses spanning two call events were accepted")
	}
}
