package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/telemetry"
	"github.com/keydex/keydex/pkg/keyword"
	"github.com/keydex/keydex/pkg/version"
)

// Tool descriptions, shared by ListTools and tool registration.
const (
	descSearchKeywords = "Search the keyword index with query-string syntax. Supports plain terms, wildcards (run*, w?dget), and the keyword: field prefix. An empty query matches every keyword."
	descIndexText      = "Run a text document through the extraction pipeline and index every surviving word. Splitting, stop words, and the term pattern apply."
	descIndexWords     = "Index an explicit word list. The extraction function is bypassed; filter stages still apply."
	descClearIndex     = "Remove every keyword from the index in a single commit."
	descIndexStatus    = "Report index statistics: keyword count, commit epoch, and storage location."
)

// Server is the MCP server for keydex. It exposes the keyword index to AI
// clients over JSON-RPC.
type Server struct {
	mcp    *mcp.Server
	index  *keyword.Index
	config *config.Config
	logger *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server around the given index.
func NewServer(index *keyword.Index, cfg *config.Config) (*Server, error) {
	if index == nil {
		return nil, errors.New("keyword index is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		index:  index,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "keydex",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools/resources
	)

	s.registerTools()

	return s, nil
}

// SetMetrics sets the query metrics collector for telemetry.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "keydex", version.Version
}

// Capabilities returns whether tools and resources are enabled.
func (s *Server) Capabilities() (hasTools, hasResources bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return true, s.metrics != nil
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "search_keywords", Description: descSearchKeywords},
		{Name: "index_text", Description: descIndexText},
		{Name: "index_words", Description: descIndexWords},
		{Name: "clear_index", Description: descClearIndex},
		{Name: "index_status", Description: descIndexStatus},
	}
}

// CallTool invokes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search_keywords":
		return s.handleSearchKeywords(ctx, args)
	case "index_text":
		return s.handleIndexText(ctx, args)
	case "index_words":
		return s.handleIndexWords(ctx, args)
	case "clear_index":
		return s.handleClearIndex(ctx)
	case "index_status":
		return s.handleIndexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleSearchKeywords handles the search_keywords tool invocation.
// Returns markdown-formatted results.
func (s *Server) handleSearchKeywords(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	// Blank queries are legal: they enumerate the whole index.
	query, _ := args["query"].(string)

	limit := clampLimit(0, s.config.Search.DefaultLimit, 1, MaxLimit)
	if l, ok := args["limit"].(float64); ok {
		limit = clampLimit(int(l), s.config.Search.DefaultLimit, 1, MaxLimit)
	}

	s.logger.Info("search_keywords_started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	results, err := s.index.Search(ctx, query, limit)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search_keywords_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.recordQuery(query, results, duration)

	s.logger.Info("search_keywords_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("hits", len(results.Hits)),
		slog.Uint64("total", results.Total))

	return FormatSearchResults(query, results), nil
}

// handleIndexText handles the index_text tool invocation.
func (s *Server) handleIndexText(ctx context.Context, args map[string]any) (*IndexAckOutput, error) {
	requestID := generateRequestID()

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, NewInvalidParamsError("text parameter is required and must be a non-empty string")
	}

	s.logger.Info("index_text_started",
		slog.String("request_id", requestID),
		slog.Int("length", len(text)))

	if err := s.index.Index(ctx, text); err != nil {
		s.logger.Error("index_text_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return s.ack(requestID, "index_text_completed")
}

// handleIndexWords handles the index_words tool invocation.
func (s *Server) handleIndexWords(ctx context.Context, args map[string]any) (*IndexAckOutput, error) {
	requestID := generateRequestID()

	raw, ok := args["words"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, NewInvalidParamsError("words parameter is required and must be a non-empty array of strings")
	}

	words := make([]string, 0, len(raw))
	for _, w := range raw {
		str, ok := w.(string)
		if !ok {
			return nil, NewInvalidParamsError("words must contain only strings")
		}
		words = append(words, str)
	}

	s.logger.Info("index_words_started",
		slog.String("request_id", requestID),
		slog.Int("count", len(words)))

	if err := s.index.IndexWords(ctx, words); err != nil {
		s.logger.Error("index_words_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return s.ack(requestID, "index_words_completed")
}

// handleClearIndex handles the clear_index tool invocation.
func (s *Server) handleClearIndex(ctx context.Context) (*IndexAckOutput, error) {
	requestID := generateRequestID()

	s.logger.Info("clear_index_started", slog.String("request_id", requestID))

	if err := s.index.DeleteAll(ctx); err != nil {
		s.logger.Error("clear_index_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return s.ack(requestID, "clear_index_completed")
}

// handleIndexStatus handles the index_status tool invocation.
func (s *Server) handleIndexStatus(_ context.Context) (*IndexStatusOutput, error) {
	stats, err := s.index.Stats()
	if err != nil {
		return nil, MapError(err)
	}

	storage := "memory"
	if stats.Path != "" {
		storage = "disk"
	}

	return &IndexStatusOutput{
		Status:   "ready",
		Storage:  storage,
		Path:     stats.Path,
		Keywords: stats.Keywords,
		Epoch:    stats.Epoch,
	}, nil
}

// ack reports post-mutation index state for a completed tool call.
func (s *Server) ack(requestID, event string) (*IndexAckOutput, error) {
	stats, err := s.index.Stats()
	if err != nil {
		return nil, MapError(err)
	}

	s.logger.Info(event,
		slog.String("request_id", requestID),
		slog.Uint64("keywords", stats.Keywords),
		slog.Uint64("epoch", stats.Epoch))

	return &IndexAckOutput{Keywords: stats.Keywords, Epoch: stats.Epoch}, nil
}

// recordQuery records query telemetry if a metrics collector is configured.
func (s *Server) recordQuery(query string, results *keyword.Results, latency time.Duration) {
	s.mu.RLock()
	m := s.metrics
	s.mu.RUnlock()

	if m == nil {
		return
	}
	m.Record(telemetry.QueryEvent{
		Query:     query,
		Kind:      telemetry.ClassifyQuery(query),
		Hits:      len(results.Hits),
		Total:     results.Total,
		Latency:   latency,
		Timestamp: time.Now(),
	})
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_keywords",
		Description: descSearchKeywords,
	}, s.mcpSearchKeywordsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search_keywords"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_text",
		Description: descIndexText,
	}, s.mcpIndexTextHandler)
	s.logger.Debug("Registered tool", slog.String("name", "index_text"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_words",
		Description: descIndexWords,
	}, s.mcpIndexWordsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "index_words"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_index",
		Description: descClearIndex,
	}, s.mcpClearIndexHandler)
	s.logger.Debug("Registered tool", slog.String("name", "clear_index"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: descIndexStatus,
	}, s.mcpIndexStatusHandler)
	s.logger.Debug("Registered tool", slog.String("name", "index_status"))

	s.logger.Info("MCP tools registered", slog.Int("count", 5))
}

// mcpSearchKeywordsHandler is the MCP SDK handler for the search_keywords tool.
func (s *Server) mcpSearchKeywordsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchKeywordsInput) (
	*mcp.CallToolResult,
	SearchKeywordsOutput,
	error,
) {
	start := time.Now()

	limit := clampLimit(input.Limit, s.config.Search.DefaultLimit, 1, MaxLimit)

	results, err := s.index.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchKeywordsOutput{}, MapError(err)
	}

	s.recordQuery(input.Query, results, time.Since(start))

	output := SearchKeywordsOutput{
		Hits:     make([]HitOutput, 0, len(results.Hits)),
		Total:    results.Total,
		MaxScore: results.MaxScore,
	}
	for _, h := range results.Hits {
		output.Hits = append(output.Hits, HitOutput{Term: h.Term, Score: h.Score})
	}

	return nil, output, nil
}

// mcpIndexTextHandler is the MCP SDK handler for the index_text tool.
func (s *Server) mcpIndexTextHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexTextInput) (
	*mcp.CallToolResult,
	*IndexAckOutput,
	error,
) {
	output, err := s.handleIndexText(ctx, map[string]any{"text": input.Text})
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// mcpIndexWordsHandler is the MCP SDK handler for the index_words tool.
func (s *Server) mcpIndexWordsHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexWordsInput) (
	*mcp.CallToolResult,
	*IndexAckOutput,
	error,
) {
	if len(input.Words) == 0 {
		return nil, nil, NewInvalidParamsError("words parameter is required and must be a non-empty array of strings")
	}

	if err := s.index.IndexWords(ctx, input.Words); err != nil {
		return nil, nil, MapError(err)
	}

	output, err := s.ack(generateRequestID(), "index_words_completed")
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// mcpClearIndexHandler is the MCP SDK handler for the clear_index tool.
func (s *Server) mcpClearIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ClearIndexInput) (
	*mcp.CallToolResult,
	*IndexAckOutput,
	error,
) {
	output, err := s.handleClearIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	output, err := s.handleIndexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		s.logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	// The MCP server stops when its context is canceled; nothing to release.
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
