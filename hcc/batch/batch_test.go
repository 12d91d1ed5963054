package batch_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenhealth/hccinfhir/hcc/batch"
	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/raf"
	"github.com/seenhealth/hccinfhir/hcc/tables"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
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

func TestRunScoresCohort(t *testing.T) {
	dir, err := os.MkdirTemp("", "batch*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	demoPath := writeFile(t, dir, "demo.csv", `mrn,age,sex,dual_elgbl_cd,orec,lti
M0001,72,F,,0,0
M0002,68,M,02,1,0
M0003,forty,F,,0,0
M0004,70,X,,0,0
`)
	dxPath := writeFile(t, dir, "dx.csv", `mrn,icd10
M0001,E11.9
M0001,N18.3
M0002,I10
M0003,E11.9
M0004,E11.9
MX999,E11.9
`)
	outPath := filepath.Join(dir, "scores.csv")

	calc := raf.New(tables.Default())
	res, err := batch.Run(calc, batch.Config{
		DemographicsFile: demoPath,
		DiagnosisFile:    dxPath,
		OutputFile:       outPath,
		Models:           []models.Model{models.CMSHCCV24, models.CMSHCCV28},
	})
	require.NoError(t, err)

	// M0003 fails at parse, M0004 fails in both models, MX999 joins to
	// nothing.
	assert.Equal(t, 3, res.Members)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 1, res.UnknownMRNs)

	rows := readCSV(t, outPath)
	require.Len(t, rows, 5)
	assert.Equal(t, batch.OutputHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "M0001", first[0])
	assert.Equal(t, "CMS-HCC Model V24", first[1])
	assert.Equal(t, "138 19", first[5])

	expected, err := calc.Score([]string{"E11.9", "N18.3"}, raf.ScoreOptions{
		Model: models.CMSHCCV24, Age: 72, Sex: "F", OREC: "0",
	})
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatFloat(expected.RiskScore, 'f', 3, 64), first[2])
	assert.Equal(t, strconv.FormatFloat(expected.RiskScoreDemographics, 'f', 3, 64), first[3])
	assert.Equal(t, strconv.FormatFloat(expected.RiskScoreChronicOnly, 'f', 3, 64), first[4])

	// M0002 maps no conditions and still carries a demographic score.
	third := rows[3]
	assert.Equal(t, "M0002", third[0])
	assert.Equal(t, "CMS-HCC Model V24", third[1])
	assert.Empty(t, third[5])
	demoOnly, err := strconv.ParseFloat(third[3], 64)
	require.NoError(t, err)
	assert.Greater(t, demoOnly, 0.0)
	assert.Equal(t, third[2], third[3])
}

func TestRunDefaultsToV28(t *testing.T) {
	dir, err := os.MkdirTemp("", "batch*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	demoPath := writeFile(t, dir, "demo.csv", "mrn,age,sex\nM0001,67,F\n")
	dxPath := writeFile(t, dir, "dx.csv", "mrn,icd10\nM0001,E11.9\n")
	outPath := filepath.Join(dir, "scores.csv")

	res, err := batch.Run(raf.New(tables.Default()), batch.Config{
		DemographicsFile: demoPath,
		DiagnosisFile:    dxPath,
		OutputFile:       outPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	rows := readCSV(t, outPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "CMS-HCC Model V28", rows[1][1])
	assert.Equal(t, "38", rows[1][5])
}

func TestRunRequiresColumns(t *testing.T) {
	dir, err := os.MkdirTemp("", "batch*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	demoPath := writeFile(t, dir, "demo.csv", "mrn,age,sex\nM0001,67,F\n")
	dxPath := writeFile(t, dir, "dx.csv", "mrn,code\nM0001,E11.9\n")

	_, err = batch.Run(raf.New(tables.Default()), batch.Config{
		DemographicsFile: demoPath,
		DiagnosisFile:    dxPath,
		OutputFile:       filepath.Join(dir, "scores.csv"),
	})
	var formatErr *hccErrors.TableFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "dx.csv", formatErr.File)
	assert.Contains(t, err.Error(), `required column "icd10"`)
}

func TestRunMissingFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "batch*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	_, err = batch.Run(raf.New(tables.Default()), batch.Config{
		DemographicsFile: filepath.Join(dir, "absent.csv"),
		DiagnosisFile:    filepath.Join(dir, "alsoabsent.csv"),
		OutputFile:       filepath.Join(dir, "scores.csv"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open cohort file")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
