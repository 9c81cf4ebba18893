// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"time"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/xmaps"
)

// EventCompaction marks a range of session history as summarized.
type EventCompaction struct {
	// StartTimestamp is the timestamp of the first event covered by the compaction.
	StartTimestamp time.Time

	// EndTimestamp is the timestamp of the last event covered by the compaction.
	EndTimestamp time.Time

	// CompactedContent replaces the covered events when history is reconstructed.
	CompactedContent *genai.Content
}

// Covers reports whether ts falls inside the compacted range.
func (c *EventCompaction) Covers(ts time.Time) bool {
	return !ts.Before(c.StartTimestamp) && !ts.After(c.EndTimestamp)
}

// EventActions represents the actions attached to an event.
type EventActions struct {
	// SkipSummarization if true, it won't call model to summarize function response.
	//
	// Only used for functionResponse event.
	SkipSummarization bool

	// StateDelta indicates that the event is updating the state with the given delta.
	//
	// A nil value deletes the key.
	StateDelta map[string]any

	// ArtifactDelta indicates that the event is updating an artifact. key is the filename, value is the version.
	ArtifactDelta map[string]int

	// TransferToAgent if set, the event transfers to the specified agent.
	TransferToAgent string

	// Escalate is the agent is escalating to a higher level agent.
	Escalate bool

	// RequestedAuthConfigs authentication configurations requested by tool responses.
	//
	// Keys are function call ids, since one function response event could
	// contain multiple function responses that correspond to multiple function calls.
	RequestedAuthConfigs map[string]*AuthConfig

	// Compaction is set on synthetic events that summarize a range of history.
	Compaction *EventCompaction

	// RewindBeforeInvocationID is set on corrective events produced by a rewind.
	RewindBeforeInvocationID string
}

// NewEventActions creates a new [EventActions] instance with default values.
func NewEventActions() *EventActions {
	return &EventActions{
		StateDelta:           make(map[string]any),
		ArtifactDelta:        make(map[string]int),
		RequestedAuthConfigs: make(map[string]*AuthConfig),
	}
}

// WithSkipSummarization configures the skipSummarization to the [EventActions].
func (ea *EventActions) WithSkipSummarization(skipSummarization bool) *EventActions {
	ea.SkipSummarization = skipSummarization
	return ea
}

// WithStateDelta configures the stateDelta to the [EventActions].
func (ea *EventActions) WithStateDelta(stateDelta map[string]any) *EventActions {
	ea.StateDelta = stateDelta
	return ea
}

// WithArtifactDelta configures the artifactDelta to the [EventActions].
func (ea *EventActions) WithArtifactDelta(artifactDelta map[string]int) *EventActions {
	ea.ArtifactDelta = artifactDelta
	return ea
}

// WithTransferToAgent configures the transferToAgent to the [EventActions].
func (ea *EventActions) WithTransferToAgent(transferToAgent string) *EventActions {
	ea.TransferToAgent = transferToAgent
	return ea
}

// WithEscalate configures the escalate to the [EventActions].
func (ea *EventActions) WithEscalate(escalate bool) *EventActions {
	ea.Escalate = escalate
	return ea
}

// WithRequestedAuthConfigs configures the requestedAuthConfigs to the [EventActions].
func (ea *EventActions) WithRequestedAuthConfigs(requestedAuthConfigs map[string]*AuthConfig) *EventActions {
	ea.RequestedAuthConfigs = requestedAuthConfigs
	return ea
}

// WithCompaction configures the compaction to the [EventActions].
func (ea *EventActions) WithCompaction(compaction *EventCompaction) *EventActions {
	ea.Compaction = compaction
	return ea
}

// WithRewindBeforeInvocationID configures the rewind target to the [EventActions].
func (ea *EventActions) WithRewindBeforeInvocationID(invocationID string) *EventActions {
	ea.RewindBeforeInvocationID = invocationID
	return ea
}

// IsEmpty reports whether the actions carry no side effect.
func (ea *EventActions) IsEmpty() bool {
	return ea == nil || (!ea.SkipSummarization && len(ea.StateDelta) == 0 && len(ea.ArtifactDelta) == 0 &&
		ea.TransferToAgent == "" && !ea.Escalate && len(ea.RequestedAuthConfigs) == 0 &&
		ea.Compaction == nil && ea.RewindBeforeInvocationID == "")
}

// Merge overlays other onto ea.
//
// Fields and map keys already set on ea win over the ones in other.
// RequestedAuthConfigs is a union of both maps.
func (ea *EventActions) Merge(other *EventActions) *EventActions {
	if other == nil {
		return ea
	}

	ea.SkipSummarization = ea.SkipSummarization || other.SkipSummarization
	ea.Escalate = ea.Escalate || other.Escalate
	if ea.TransferToAgent == "" {
		ea.TransferToAgent = other.TransferToAgent
	}
	if ea.Compaction == nil {
		ea.Compaction = other.Compaction
	}
	if ea.RewindBeforeInvocationID == "" {
		ea.RewindBeforeInvocationID = other.RewindBeforeInvocationID
	}

	ea.StateDelta = xmaps.Overlay(ea.StateDelta, other.StateDelta)
	ea.ArtifactDelta = xmaps.Overlay(ea.ArtifactDelta, other.ArtifactDelta)
	ea.RequestedAuthConfigs = xmaps.Overlay(ea.RequestedAuthConfigs, other.RequestedAuthConfigs)

	return ea
}
