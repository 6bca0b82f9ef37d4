package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/domain"
	"github.com/maternity-risk-server/internal/service"
)

// EvaluateRiskParams defines parameters for the evaluate_risk tool
type EvaluateRiskParams struct {
	PatientRef        string                `json:"patient_ref,omitempty" jsonschema:"opaque patient or bed reference stored with the assessment"`
	Bundle            domain.ClinicalBundle `json:"bundle" jsonschema:"clinical fields keyed by name, birth_date is required"`
	CurrentCategoryID *int64                `json:"current_category_id,omitempty" jsonschema:"category identifier currently assigned to the patient"`
}

// EvaluateRiskResult defines the result structure for the evaluate_risk tool
type EvaluateRiskResult struct {
	AssessmentID string              `json:"assessment_id"`
	CategoryID   int64               `json:"category_id"`
	Category     domain.CategoryName `json:"category"`
	Rule         string              `json:"rule"`
	MaternalAge  int                 `json:"maternal_age"`
	EvaluatedAt  time.Time           `json:"evaluated_at"`
}

// ListRiskCategoriesParams defines parameters for the list_risk_categories tool
type ListRiskCategoriesParams struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"drop cached identifiers and reload them from reference data"`
}

// ListRiskCategoriesResult defines the result structure for the list_risk_categories tool
type ListRiskCategoriesResult struct {
	CategoryIDs domain.CategoryIDs    `json:"category_ids"`
	Categories  []domain.RiskCategory `json:"categories,omitempty"`
}

// ListAssessmentsParams defines parameters for the list_assessments tool
type ListAssessmentsParams struct {
	PatientRef string `json:"patient_ref" jsonschema:"patient reference the assessments were recorded under"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of assessments to return"`
	Offset     int    `json:"offset,omitempty"`
}

// ListAssessmentsResult defines the result structure for the list_assessments tool
type ListAssessmentsResult struct {
	PatientRef  string               `json:"patient_ref"`
	Assessments []*assessment.Record `json:"assessments"`
}

// ExportAssessmentsParams defines parameters for the export_assessments tool
type ExportAssessmentsParams struct {
	FileName string `json:"file_name,omitempty" jsonschema:"name of the export file, defaults to a timestamped name"`
}

// ExportAssessmentsResult defines the result structure for the export_assessments tool
type ExportAssessmentsResult struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// handleEvaluateRisk handles the evaluate_risk tool invocation
func (s *Server) handleEvaluateRisk(ctx context.Context, req *mcp.CallToolRequest, params EvaluateRiskParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolEvaluateRisk).Debug("Tool invoked")

	if params.Bundle == nil {
		return s.createErrorResult("Missing required parameter", errors.New("bundle is required")), nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, service.EvaluationTimeout)
	defer cancel()

	record, err := s.engine.Classify(ctx, service.ClassifyRequest{
		PatientRef:        params.PatientRef,
		Bundle:            params.Bundle,
		CurrentCategoryID: params.CurrentCategoryID,
	})
	if err != nil {
		return s.engineErrorResult(err), nil, nil
	}

	result := EvaluateRiskResult{
		AssessmentID: record.ID,
		CategoryID:   record.CategoryID,
		Category:     record.CategoryName,
		Rule:         record.Rule,
		MaternalAge:  record.MaternalAge,
		EvaluatedAt:  record.EvaluatedAt,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Risk category: %s (id %d, rule %s)", result.Category, result.CategoryID, result.Rule),
			},
		},
	}, result, nil
}

// handleListRiskCategories handles the list_risk_categories tool invocation
func (s *Server) handleListRiskCategories(ctx context.Context, req *mcp.CallToolRequest, params ListRiskCategoriesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListRiskCategories).Debug("Tool invoked")

	resolve := s.engine.CategoryIDs
	if params.Refresh {
		resolve = s.engine.RefreshCategories
	}

	ids, err := resolve(ctx)
	if err != nil {
		return s.engineErrorResult(err), nil, nil
	}

	result := ListRiskCategoriesResult{CategoryIDs: ids}

	// Rows are descriptive only; the identifier map above is authoritative.
	if rows, err := s.engine.Categories(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to list risk category rows")
	} else {
		result.Categories = rows
	}

	parts := make([]string, 0, len(domain.CanonicalCategories))
	for _, name := range domain.CanonicalCategories {
		parts = append(parts, fmt.Sprintf("%s=%d", name, ids[name]))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Risk categories: " + strings.Join(parts, ", ")},
		},
	}, result, nil
}

// handleListAssessments handles the list_assessments tool invocation
func (s *Server) handleListAssessments(ctx context.Context, req *mcp.CallToolRequest, params ListAssessmentsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListAssessments).Debug("Tool invoked")

	if params.PatientRef == "" {
		return s.createErrorResult("Missing required parameter", errors.New("patient_ref is required")), nil, nil
	}

	records, err := s.history.ListByPatient(ctx, params.PatientRef, params.Limit, params.Offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list risk assessments")
		return s.createErrorResult("Failed to list assessments", err), nil, nil
	}
	if records == nil {
		records = []*assessment.Record{}
	}

	result := ListAssessmentsResult{PatientRef: params.PatientRef, Assessments: records}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Found %d assessments for %s", len(records), params.PatientRef),
			},
		},
	}, result, nil
}

// handleExportAssessments handles the export_assessments tool invocation
func (s *Server) handleExportAssessments(ctx context.Context, req *mcp.CallToolRequest, params ExportAssessmentsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolExportAssessments).Debug("Tool invoked")

	name := filepath.Base(params.FileName)
	if params.FileName == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("assessments_%s.json", time.Now().UTC().Format("20060102_150405"))
	}
	if filepath.Ext(name) != ".json" {
		name += ".json"
	}
	path := filepath.Join(s.exportDir, name)

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return s.createErrorResult("Failed to create export directory", err), nil, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return s.createErrorResult("Failed to create export file", err), nil, nil
	}
	defer f.Close()

	if err := s.history.ExportJSON(ctx, f); err != nil {
		s.logger.WithError(err).Error("Failed to export risk assessments")
		return s.createErrorResult("Failed to export assessments", err), nil, nil
	}

	count, err := s.history.Count(ctx)
	if err != nil {
		return s.createErrorResult("Failed to count assessments", err), nil, nil
	}

	s.logger.WithFields(logrus.Fields{"path": path, "count": count}).Info("Exported risk assessments")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Exported %d assessments to %s", count, path)},
		},
	}, ExportAssessmentsResult{Path: path, Count: count}, nil
}

// engineErrorResult converts an engine failure into a tool error result.
func (s *Server) engineErrorResult(err error) *mcp.CallToolResult {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return s.createErrorResult("Invalid clinical input", verr)
	case errors.Is(err, domain.ErrReferenceDataStore):
		s.logger.WithError(err).Error("Reference data unavailable")
		return s.createErrorResult("Reference data unavailable", nil)
	default:
		s.logger.WithError(err).Error("Risk evaluation failed")
		return s.createErrorResult("Risk evaluation failed", err)
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
