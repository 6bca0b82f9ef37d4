package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/maternity-risk-server/internal/domain"
	"github.com/maternity-risk-server/internal/service"
)

func evaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		input           string
		patientRef      string
		currentCategory int64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Assign a risk category to a clinical bundle read from JSON",
		Long: `Reads either a bare clinical bundle or an object of the form
{"bundle": {...}, "patient_ref": "...", "current_category_id": N}
and prints the resulting assessment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readClassifyRequest(cmd, input)
			if err != nil {
				return err
			}
			if patientRef != "" {
				req.PatientRef = patientRef
			}
			if cmd.Flags().Changed("current-category") {
				req.CurrentCategoryID = &currentCategory
			}

			e, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			record, err := e.risk.Classify(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON file to read, - for stdin")
	cmd.Flags().StringVar(&patientRef, "patient-ref", "", "patient reference stored with the assessment")
	cmd.Flags().Int64Var(&currentCategory, "current-category", 0, "category identifier currently assigned")

	return cmd
}

func readClassifyRequest(cmd *cobra.Command, input string) (service.ClassifyRequest, error) {
	var r io.Reader = cmd.InOrStdin()
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return service.ClassifyRequest{}, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return service.ClassifyRequest{}, fmt.Errorf("decoding input: %w", err)
	}

	bundle, wrapped := raw["bundle"].(map[string]any)
	if !wrapped {
		return service.ClassifyRequest{Bundle: domain.ClinicalBundle(raw)}, nil
	}

	req := service.ClassifyRequest{Bundle: domain.ClinicalBundle(bundle)}
	if ref, ok := raw["patient_ref"].(string); ok {
		req.PatientRef = ref
	}
	if id, ok := raw["current_category_id"].(float64); ok {
		current := int64(id)
		req.CurrentCategoryID = &current
	}
	return req, nil
}
