// Package mcp provides an MCP (Model Context Protocol) server adapter for tbqa.
// It lets AI assistants ask questions of the TB drug knowledge graph.
package mcp

import "errors"

// ErrMissingQAService is returned when the QA service is not provided.
var ErrMissingQAService = errors.New("mcp: qa service is required")

// ErrEmptyQuestion is returned by tools that need a question and got none.
var ErrEmptyQuestion = errors.New("mcp: question is required")
