// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools provides ready made tools and the function tool constructors.
//
// A [FunctionTool] wraps a plain function with a declared parameters schema.
// [NewTypedFunctionTool] derives the schema from a struct:
//
//	type weatherArgs struct {
//		City string `json:"city" description:"The city to report on."`
//	}
//
//	weather, err := tools.NewTypedFunctionTool("get_weather", "Reports the weather of a city.",
//		func(ctx context.Context, args weatherArgs, _ *types.ToolContext) (string, error) {
//			return lookup(ctx, args.City)
//		},
//		tools.WithToolOptions(tool.WithRetryPolicy(types.DefaultRetryPolicy())),
//	)
//
// Tools returning errors are retried according to their retry policy and the
// last error is reported to the model as {"error": ..., "message": ...}.
//
// The flow control tools are [TransferToAgentTool], which hands the turn to
// another agent, and [ExitLoopTool], which stops an enclosing loop agent.
// [AgentTool] runs an agent as a function call.
package tools
