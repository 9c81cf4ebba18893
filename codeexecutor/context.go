// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package codeexecutor

import (
	"time"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/agentflow/types"
)

// Session state keys of the code execution context.
const (
	ContextKey              = "_code_execution_context"
	SessionIDKey            = "execution_session_id"
	ProcessedFileNamesKey   = "processed_input_files"
	InputFileKey            = "_code_executor_input_files"
	ErrorCountKey           = "_code_executor_error_counts"
	CodeExecutionResultsKey = "_code_execution_results"
)

// ExecutionRecord is one code execution kept in the session state.
type ExecutionRecord struct {
	Code      string  `json:"code"`
	Stdout    string  `json:"result_stdout"`
	Stderr    string  `json:"result_stderr"`
	Timestamp float64 `json:"timestamp"`
}

// Context is the code execution state of a session.
//
// Values are read from and written to a [types.State], so every change shows
// up in its delta and is persisted with the event carrying that delta. Values
// are decoded leniently since persisted state comes back as generic JSON.
type Context struct {
	state *types.State
}

// NewContext returns a [Context] backed by state.
func NewContext(state *types.State) *Context {
	return &Context{state: state}
}

// StateDelta returns the state changes made through the context.
func (c *Context) StateDelta() map[string]any {
	return c.state.Delta()
}

// ExecutionID returns the execution id of stateful executors.
func (c *Context) ExecutionID() string {
	id, _ := c.contextMap()[SessionIDKey].(string)
	return id
}

// SetExecutionID sets the execution id of stateful executors.
func (c *Context) SetExecutionID(id string) {
	m := c.contextMap()
	m[SessionIDKey] = id
	c.state.Set(ContextKey, m)
}

// ProcessedFileNames returns the names of the input files already explored.
func (c *Context) ProcessedFileNames() []string {
	var names []string
	decode(c.contextMap()[ProcessedFileNamesKey], &names)
	return names
}

// AddProcessedFileNames marks files as explored.
func (c *Context) AddProcessedFileNames(names ...string) {
	m := c.contextMap()
	m[ProcessedFileNamesKey] = append(c.ProcessedFileNames(), names...)
	c.state.Set(ContextKey, m)
}

// InputFiles returns the input files made available to the executions.
func (c *Context) InputFiles() []*types.CodeExecutionFile {
	var files []*types.CodeExecutionFile
	if v, ok := c.state.Get(InputFileKey); ok {
		decode(v, &files)
	}
	return files
}

// AddInputFiles adds input files.
func (c *Context) AddInputFiles(files ...*types.CodeExecutionFile) {
	c.state.Set(InputFileKey, append(c.InputFiles(), files...))
}

// ClearInputFiles removes every input file and forgets which were explored.
func (c *Context) ClearInputFiles() {
	if c.state.Has(InputFileKey) {
		c.state.Set(InputFileKey, []*types.CodeExecutionFile{})
	}
	m := c.contextMap()
	if _, ok := m[ProcessedFileNamesKey]; ok {
		m[ProcessedFileNamesKey] = []string{}
		c.state.Set(ContextKey, m)
	}
}

// ErrorCount returns the number of consecutive failed executions of the invocation.
func (c *Context) ErrorCount(invocationID string) int {
	return c.errorCounts()[invocationID]
}

// IncrementErrorCount records a failed execution of the invocation.
func (c *Context) IncrementErrorCount(invocationID string) {
	counts := c.errorCounts()
	counts[invocationID]++
	c.state.Set(ErrorCountKey, counts)
}

// ResetErrorCount clears the failed executions of the invocation.
func (c *Context) ResetErrorCount(invocationID string) {
	counts := c.errorCounts()
	if _, ok := counts[invocationID]; !ok {
		return
	}
	delete(counts, invocationID)
	c.state.Set(ErrorCountKey, counts)
}

// ExecutionResults returns the executions recorded for the invocation.
func (c *Context) ExecutionResults(invocationID string) []ExecutionRecord {
	return c.executionResults()[invocationID]
}

// UpdateExecutionResult records one execution of the invocation.
func (c *Context) UpdateExecutionResult(invocationID, code, stdout, stderr string) {
	results := c.executionResults()
	results[invocationID] = append(results[invocationID], ExecutionRecord{
		Code:      code,
		Stdout:    stdout,
		Stderr:    stderr,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	})
	c.state.Set(CodeExecutionResultsKey, results)
}

// contextMap returns a copy of the map stored under [ContextKey].
func (c *Context) contextMap() map[string]any {
	m := make(map[string]any)
	if v, ok := c.state.Get(ContextKey); ok {
		decode(v, &m)
	}
	return m
}

func (c *Context) errorCounts() map[string]int {
	counts := make(map[string]int)
	if v, ok := c.state.Get(ErrorCountKey); ok {
		decode(v, &counts)
	}
	return counts
}

func (c *Context) executionResults() map[string][]ExecutionRecord {
	results := make(map[string][]ExecutionRecord)
	if v, ok := c.state.Get(CodeExecutionResultsKey); ok {
		decode(v, &results)
	}
	return results
}

// decode converts a state value into out through its JSON form. Undecodable
// values leave out untouched.
func decode(v, out any) {
	if v == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = json.Unmarshal(b, out)
}
