package gen_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenhealth/hccinfhir/hcc/gen"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/raf"
	"github.com/seenhealth/hccinfhir/hcc/tables"
)

func TestCohort(t *testing.T) {
	reg := tables.Default()
	members := gen.Cohort(60, models.CMSHCCV28, reg)
	require.Len(t, members, 60)

	mt := reg.For(models.CMSHCCV28)
	for _, m := range members {
		assert.Regexp(t, `^[1-9][A-Z][A-Z0-9][0-9][A-Z][A-Z0-9][0-9][A-Z]{2}[0-9]{2}$`, m.MRN)
		assert.GreaterOrEqual(t, m.Age, 18)
		assert.LessOrEqual(t, m.Age, 95)
		assert.Contains(t, []string{"F", "M"}, m.Sex)
		assert.NotEmpty(t, m.OREC)
		require.NotEmpty(t, m.Diagnoses)
		assert.LessOrEqual(t, len(m.Diagnoses), 8)
		for _, code := range m.Diagnoses {
			assert.NotEmpty(t, mt.CategoriesForDiagnosis(code), "code %s should map", code)
		}
	}
}

func TestCohortMembersScore(t *testing.T) {
	calc := raf.New(tables.Default())
	for _, m := range gen.Cohort(20, models.CMSHCCV24, tables.Default()) {
		result, err := calc.Score(m.Diagnoses, raf.ScoreOptions{
			Model:       models.CMSHCCV24,
			Age:         m.Age,
			Sex:         m.Sex,
			DualCode:    m.DualCode,
			OREC:        m.OREC,
			LTI:         m.LTI,
			NewEnrollee: m.NewEnrollee,
			LowIncome:   m.LowIncome,
		})
		require.NoError(t, err)
		assert.Equal(t, result.RiskScore, result.RiskScoreDemographics+result.RiskScoreHCC)
		assert.NotEmpty(t, result.CCToDx)
	}
}

func TestWriteCSVs(t *testing.T) {
	dir, err := os.MkdirTemp("", "cohort*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	members := gen.Cohort(15, models.CMSHCCV24, tables.Default())
	demoPath, dxPath, err := gen.WriteCSVs(dir, members)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cohort_demographics.csv"), demoPath)
	assert.Equal(t, filepath.Join(dir, "cohort_diagnoses.csv"), dxPath)

	demo := readCSV(t, demoPath)
	require.NotEmpty(t, demo)
	assert.Equal(t, gen.DemographicsHeader, demo[0])
	assert.Len(t, demo, 16)

	dx := readCSV(t, dxPath)
	require.NotEmpty(t, dx)
	assert.Equal(t, gen.DiagnosisHeader, dx[0])

	// Every diagnosis row joins back to a generated member.
	mrns := make(map[string]bool, len(members))
	for _, m := range members {
		mrns[m.MRN] = true
	}
	for _, row := range dx[1:] {
		require.Len(t, row, 2)
		assert.True(t, mrns[row[0]], "diagnosis row for unknown mrn %s", row[0])
	}
}

func readCSV(t *testing.T, name string) [][]string {
	t.Helper()
	file, err := os.Open(filepath.Clean(name))
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}
