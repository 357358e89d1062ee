// Package configs provides embedded configuration templates for keydex.
//
// Templates are embedded at build time with go:embed, so they ship with
// every distribution of the binary. They are consumed by:
//   - cmd/keydex/cmd/config.go: `keydex config init` writes the user
//     template to ~/.config/keydex/config.yaml
//   - cmd/keydex/cmd/config.go: `keydex config init --project` writes the
//     project template to .keydex.yaml
//
// Configuration precedence (see internal/config.Load): built-in defaults,
// then the user config, then the project config, then KEYDEX_* environment
// variables.
package configs

import _ "embed"

// UserConfigTemplate is the machine-level configuration template, holding
// settings that apply to every project on a machine: grace delay, query
// cache size, telemetry, log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the project-level configuration template,
// usually committed alongside the project: index path, extraction
// patterns, watch-mode extensions.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
