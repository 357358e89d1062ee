// Package logging provides file-based logging with rotation for keydex.
// Logs are structured JSON written to ~/.keydex/logs/, with optional
// mirroring to stderr for interactive runs.
//
// MCP serve mode logs to file only: stdout and stderr belong to the
// JSON-RPC stream and must stay clean.
package logging
