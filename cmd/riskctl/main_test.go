package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/domain"
	"github.com/maternity-risk-server/internal/setup"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluate_Lite(t *testing.T) {
	dataDir := t.TempDir()

	out, err := run(t, `{"birth_date": "1990-02-01", "temperature": 39.1}`,
		"--data-dir", dataDir, "evaluate", "--patient-ref", "leito-2")
	require.NoError(t, err)

	var record assessment.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, domain.CategoryAlto, record.CategoryName)
	assert.Equal(t, "L2_FEVER", record.Rule)
	assert.Equal(t, "leito-2", record.PatientRef)

	out, err = run(t, "", "--data-dir", dataDir, "assessments", "list", "--patient-ref", "leito-2")
	require.NoError(t, err)
	var records []*assessment.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
}

func TestEvaluate_WrappedRequestFile(t *testing.T) {
	dataDir := t.TempDir()
	input := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(input, []byte(`{
		"patient_ref": "leito-5",
		"current_category_id": 4,
		"bundle": {"birth_date": "1990-02-01", "bcf": 140}
	}`), 0600))

	out, err := run(t, "", "--data-dir", dataDir, "evaluate", "-i", input)
	require.NoError(t, err)

	var record assessment.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "STICKY_ABORTO", record.Rule)
	assert.Equal(t, int64(4), record.CategoryID)
	assert.Equal(t, "leito-5", record.PatientRef)
}

func TestEvaluate_ValidationError(t *testing.T) {
	_, err := run(t, `{"bcf": 140}`, "--data-dir", t.TempDir(), "evaluate")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldBirthDate, verr.Field)
}

func TestCategories_Lite(t *testing.T) {
	out, err := run(t, "", "--data-dir", t.TempDir(), "categories", "--refresh")
	require.NoError(t, err)

	var ids domain.CategoryIDs
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, domain.CategoryIDs{
		domain.CategoryNormal: 1,
		domain.CategoryMedio:  2,
		domain.CategoryAlto:   3,
		domain.CategoryAborto: 4,
	}, ids)
}

func TestAssessments_ExportImport(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	exportPath := filepath.Join(t.TempDir(), "export.json")

	for _, ref := range []string{"a", "b"} {
		_, err := run(t, `{"birth_date": "1990-02-01"}`, "--data-dir", source, "evaluate", "--patient-ref", ref)
		require.NoError(t, err)
	}

	_, err := run(t, "", "--data-dir", source, "assessments", "export", "-o", exportPath)
	require.NoError(t, err)

	out, err := run(t, "", "--data-dir", target, "assessments", "import", "-i", exportPath)
	require.NoError(t, err)
	assert.Equal(t, "imported 2, skipped 0\n", out)

	out, err = run(t, "", "--data-dir", target, "assessments", "import", "-i", exportPath)
	require.NoError(t, err)
	assert.Equal(t, "imported 0, skipped 2\n", out)
}

func TestAssessments_RecordingDisabled(t *testing.T) {
	t.Setenv("MATERNITY_RISK_RECORD_ASSESSMENTS", "false")

	_, err := run(t, "", "--data-dir", t.TempDir(), "assessments", "list", "--patient-ref", "x")
	assert.ErrorContains(t, err, "assessment recording is disabled")
}

func TestSetup_RegisterAndStatus(t *testing.T) {
	dir := t.TempDir()
	clientConfig := filepath.Join(dir, "client.json")
	binary := filepath.Join(dir, "mcp-server-lite")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	out, err := run(t, "", "setup", "register", "--client-config", clientConfig, "--binary", binary)
	require.NoError(t, err)
	assert.Contains(t, out, setup.ServerName)

	out, err = run(t, "", "setup", "status", "--client-config", clientConfig)
	require.NoError(t, err)

	var status setup.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Registered)
	assert.Equal(t, binary, status.ServerPath)
}
