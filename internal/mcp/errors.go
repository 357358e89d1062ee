// Package mcp implements the Model Context Protocol (MCP) server for keydex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/keydex/keydex/pkg/keyword"
)

// Custom MCP error codes for keydex.
const (
	// ErrCodeIndexLocked indicates another process holds the index directory.
	ErrCodeIndexLocked = -32001

	// ErrCodeIndexClosed indicates the index was used after Close.
	ErrCodeIndexClosed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts index errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, keyword.ErrMalformedQuery):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: fmt.Sprintf("Malformed query: %v", err),
		}
	case errors.Is(err, keyword.ErrLocked):
		return &MCPError{
			Code:    ErrCodeIndexLocked,
			Message: "Index is locked by another process.",
		}
	case errors.Is(err, keyword.ErrClosed):
		return &MCPError{
			Code:    ErrCodeIndexClosed,
			Message: "Index is closed.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}
