// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package llmflow implements the flow engine of LLM agents.
//
// A flow runs steps until a step ends with a final response. One step builds an
// [types.LLMRequest] through the request processors, calls the model, runs the
// response processors over every response and handles the function calls of
// the model by running the tools and, on transfer, the target agent.
//
//	request processors ──▶ model ──▶ response processors ──▶ tools ──▶ next step
//
// [NewSingleFlow] and [NewAutoFlow] return flows with the default processors;
// custom pipelines are built from [NewLLMFlow]:
//
//	flow := llmflow.NewLLMFlow().
//		WithRequestProcessors(&llmflow.BasicLLMRequestProcessor{}, &llmflow.ContentLLMRequestProcessor{}).
//		WithResponseProcessors(&llmflow.OutputSchemaResponseProcessor{})
//
// Processors may emit events of their own, e.g. the state delta of a stored
// credential or the code and result of a code execution, which are yielded
// before the model response event.
package llmflow
