// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration of an agentflow application.
//
// Values are layered: built-in defaults, then a YAML file, then
// AGENTFLOW_* environment variables, which may come from a .env file.
package config
