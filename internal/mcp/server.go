// Package mcp exposes the risk stratification engine as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/domain"
	"github.com/maternity-risk-server/internal/service"
)

// Tool names.
const (
	ToolEvaluateRisk       = "evaluate_risk"
	ToolListRiskCategories = "list_risk_categories"
	ToolListAssessments    = "list_assessments"
	ToolExportAssessments  = "export_assessments"
)

// RiskEngine is the part of service.RiskService the tools call.
type RiskEngine interface {
	Classify(ctx context.Context, req service.ClassifyRequest) (*assessment.Record, error)
	CategoryIDs(ctx context.Context) (domain.CategoryIDs, error)
	Categories(ctx context.Context) ([]domain.RiskCategory, error)
	RefreshCategories(ctx context.Context) (domain.CategoryIDs, error)
}

// ServerInfo contains MCP server metadata
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultServerInfo identifies the server to MCP clients.
var DefaultServerInfo = ServerInfo{Name: "maternity-risk-server", Version: "v1.0.0"}

// Server is the MCP front end of the risk engine.
type Server struct {
	info      ServerInfo
	engine    RiskEngine
	history   assessment.Store
	exportDir string
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithAssessmentLog enables the assessment listing tool, and the export
// tool when exportDir is not empty.
func WithAssessmentLog(history assessment.Store, exportDir string) ServerOption {
	return func(s *Server) {
		s.history = history
		s.exportDir = exportDir
	}
}

// WithServerInfo overrides the advertised implementation name and version.
func WithServerInfo(info ServerInfo) ServerOption {
	return func(s *Server) {
		s.info = info
	}
}

// NewServer creates an MCP server with the risk tools registered.
func NewServer(engine RiskEngine, logger *logrus.Logger, opts ...ServerOption) *Server {
	s := &Server{
		info:   DefaultServerInfo,
		engine: engine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    s.info.Name,
		Version: s.info.Version,
	}, nil)

	s.registerTools()
	return s
}

// registerTools registers the risk tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolEvaluateRisk,
		Description: "Assign a maternal risk category (Normal, Médio, Alto, Aborto) to a clinical bundle recorded at admission or update",
	}, s.handleEvaluateRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListRiskCategories,
		Description: "List the risk categories and the identifiers the engine assigns",
	}, s.handleListRiskCategories)

	registered := []string{ToolEvaluateRisk, ToolListRiskCategories}

	if s.history != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolListAssessments,
			Description: "List recorded risk assessments for a patient, most recent first",
		}, s.handleListAssessments)
		registered = append(registered, ToolListAssessments)

		if s.exportDir != "" {
			mcp.AddTool(s.mcpServer, &mcp.Tool{
				Name:        ToolExportAssessments,
				Description: "Export the assessment log to a JSON file in the data directory",
			}, s.handleExportAssessments)
			registered = append(registered, ToolExportAssessments)
		}
	}

	s.logger.WithField("tools", registered).Info("Registered MCP tools")
}

// Run serves MCP requests on the given transport until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.WithField("server", s.info.Name).Info("Starting MCP server")

	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Start serves MCP over stdin and stdout.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
