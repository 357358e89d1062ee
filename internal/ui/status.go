package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusInfo describes the state of a keyword index for the stats command.
type StatusInfo struct {
	Root     string `json:"root"`
	Storage  string `json:"storage"` // "memory" or "disk"
	Path     string `json:"path,omitempty"`
	Keywords uint64 `json:"keywords"`
	Epoch    uint64 `json:"epoch"`

	// Storage sizes in bytes; zero for in-memory indexes.
	IndexSize     int64 `json:"index_size"`
	TelemetrySize int64 `json:"telemetry_size"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Keyword Index: "+info.Root))

	_, _ = fmt.Fprintf(r.out, "  Keywords: %d\n", info.Keywords)
	_, _ = fmt.Fprintf(r.out, "  Epoch:    %d\n", info.Epoch)
	_, _ = fmt.Fprintf(r.out, "  Storage:  %s\n", info.Storage)

	if info.Storage == "disk" {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintf(r.out, "  Path:      %s\n", info.Path)
		_, _ = fmt.Fprintf(r.out, "  Index:     %s\n", FormatBytes(info.IndexSize))
		if info.TelemetrySize > 0 {
			_, _ = fmt.Fprintf(r.out, "  Telemetry: %s\n", FormatBytes(info.TelemetrySize))
		}
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// FormatBytes formats bytes to human-readable form.
func FormatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
