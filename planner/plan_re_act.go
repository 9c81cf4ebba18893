// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// Tags of the sections of a plan-re-act response.
const (
	PlanningTag    = "/*PLANNING*/"
	ReplanningTag  = "/*REPLANNING*/"
	ReasoningTag   = "/*REASONING*/"
	ActionTag      = "/*ACTION*/"
	FinalAnswerTag = "/*FINAL_ANSWER*/"
)

var (
	highLevelPreamble = heredoc.Docf(`
		When answering the question, try to leverage the available tools to gather the information instead of your memorized knowledge.

		Follow this process when answering the question: (1) first come up with a plan in natural language text format; (2) Then use tools to execute the plan and provide reasoning between tool code snippets to make a summary of current state and next step. Tool code snippets and reasoning should be interleaved with each other. (3) In the end, return one final answer.

		Follow this format when answering the question: (1) The planning part should be under %s. (2) The tool code snippets should be under %s, and the reasoning parts should be under %s. (3) The final answer part should be under %s.
		`, PlanningTag, ActionTag, ReasoningTag, FinalAnswerTag)

	planningPreamble = heredoc.Docf(`
		Below are the requirements for the planning:
		The plan is made to answer the user query if following the plan. The plan is coherent and covers all aspects of information from user query, and only involves the tools that are accessible by the agent. The plan contains the decomposed steps as a numbered list where each step should use one or multiple available tools. By reading the plan, you can intuitively know which tools to trigger or what actions to take.
		If the initial plan cannot be successfully executed, you should learn from previous execution results and revise your plan. The revised plan should be under %s. Then use tools to follow the new plan.
		`, ReplanningTag)

	reasoningPreamble = heredoc.Doc(`
		Below are the requirements for the reasoning:
		The reasoning makes a summary of the current trajectory based on the user query and tool outputs. Based on the tool outputs and plan, the reasoning also comes up with instructions to the next steps, making the trajectory closer to the final answer.
		`)

	finalAnswerPreamble = heredoc.Doc(`
		Below are the requirements for the final answer:
		The final answer should be precise and follow query formatting requirements. Some queries may not be answerable with the available tools and information. In those cases, inform the user why you cannot process their query and ask for more information.
		`)

	toolCodePreamble = heredoc.Doc(`
		Below are the requirements for the tool code:

		**Custom Tools:** The available tools are described in the context and can be directly used.
		- Code must be valid self-contained Python snippets with no imports and no references to tools or Python libraries that are not in the context.
		- You cannot use any parameters or fields that are not explicitly defined in the APIs in the context.
		- The code snippets should be readable, efficient, and directly relevant to the user query and reasoning steps.
		- When using the tools, you should use the library name together with the function name, e.g., vertex_search.search().
		- If Python libraries are not provided in the context, NEVER write your own code other than the function calls using the provided tools.
		`)

	userInputPreamble = heredoc.Doc(`
		VERY IMPORTANT instruction that you MUST follow in addition to the above instructions:

		You should ask for clarification if you need more information to answer the question.
		You should prefer using the information available in the context instead of repeated tool use.
		`)
)

var planReActInstruction = strings.Join([]string{
	highLevelPreamble,
	planningPreamble,
	reasoningPreamble,
	finalAnswerPreamble,
	toolCodePreamble,
	userInputPreamble,
}, "\n\n")

// PlanReActPlanner makes the model plan before acting. It works with any
// model, thinking support is not needed.
type PlanReActPlanner struct{}

var _ types.Planner = (*PlanReActPlanner)(nil)

// NewPlanReActPlanner returns a new [PlanReActPlanner].
func NewPlanReActPlanner() *PlanReActPlanner {
	return &PlanReActPlanner{}
}

// BuildPlanningInstruction implements [types.Planner].
func (p *PlanReActPlanner) BuildPlanningInstruction(context.Context, *types.ReadOnlyContext, *types.LLMRequest) string {
	return planReActInstruction
}

// ProcessPlanningResponse implements [types.Planner].
//
// Parts up to the first function call are kept, with the planning, reasoning
// and action sections marked as thoughts and the text before the final answer
// tag split into a thought. After the first function call only function calls
// are kept. Function calls without a name are dropped.
func (p *PlanReActPlanner) ProcessPlanningResponse(_ context.Context, _ *types.CallbackContext, parts []*genai.Part) []*genai.Part {
	if len(parts) == 0 {
		return nil
	}

	preserved := make([]*genai.Part, 0, len(parts))
	seenCall := false
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			if part.FunctionCall.Name == "" {
				continue
			}
			seenCall = true
			preserved = append(preserved, part)
			continue
		}
		if seenCall {
			continue
		}
		preserved = append(preserved, splitNonFunctionCallPart(part)...)
	}

	return preserved
}

// splitNonFunctionCallPart splits a text part holding the final answer tag into
// a reasoning thought, up to and including the tag, and the final answer.
// Other parts starting with a reasoning tag are marked as thoughts.
func splitNonFunctionCallPart(part *genai.Part) []*genai.Part {
	if idx := strings.LastIndex(part.Text, FinalAnswerTag); idx >= 0 {
		reasoning, answer := part.Text[:idx+len(FinalAnswerTag)], part.Text[idx+len(FinalAnswerTag):]

		var parts []*genai.Part
		if reasoning != "" {
			thought := genai.NewPartFromText(reasoning)
			thought.Thought = true
			parts = append(parts, thought)
		}
		if answer != "" {
			parts = append(parts, genai.NewPartFromText(answer))
		}
		return parts
	}

	for _, tag := range []string{PlanningTag, ReasoningTag, ActionTag, ReplanningTag} {
		if strings.HasPrefix(part.Text, tag) {
			thought := *part
			thought.Thought = true
			return []*genai.Part{&thought}
		}
	}
	return []*genai.Part{part}
}
