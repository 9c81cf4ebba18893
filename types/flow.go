// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"iter"
)

// Flow drives the LLM request and response loop of a leaf agent.
type Flow interface {
	// Run runs the flow with the given invocation context and returns a sequence of events.
	Run(ctx context.Context, ictx *InvocationContext) iter.Seq2[*Event, error]
}

// LLMRequestProcessor prepares an outgoing [LLMRequest].
type LLMRequestProcessor interface {
	// Run runs the processor.
	//
	// It may yield events, e.g. function responses of resumed calls, before the
	// request is sent.
	Run(ctx context.Context, ictx *InvocationContext, request *LLMRequest) iter.Seq2[*Event, error]
}

// LLMResponseProcessor interprets an incoming [LLMResponse].
type LLMResponseProcessor interface {
	// Run processes the LLM response in place and may yield events.
	Run(ctx context.Context, ictx *InvocationContext, response *LLMResponse) iter.Seq2[*Event, error]
}
