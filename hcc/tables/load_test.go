package tables_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTables materializes a minimal but complete table set in a temporary
// directory, with individual files replaced by the supplied overrides.
func writeTables(t *testing.T, overrides map[string]string) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	files := map[string]string{
		tables.DxToCCFile:       "diagnosis_code,cc,model_name\nE119,38,CMS-HCC Model V28\nE1122,37,CMS-HCC Model V28\n",
		tables.CoefficientsFile: "coefficient,value,model_name\ncna_hcc38,0.166,CMS-HCC Model V28\ncna_hcc37,0.331,CMS-HCC Model V28\n",
		tables.HierarchiesFile:  "cc_parent,cc_child,model_name\n37,38,CMS-HCC Model V28\n",
		tables.ChronicFile:      "hcc,is_chronic,model_version,model_domain\nHCC38,Y,V28,CMS-HCC\n",
		tables.ProcedureFile:    "cpt_hcpcs_code\n99213\n",
	}
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func TestLoadPackagedData(t *testing.T) {
	reg, err := tables.Load(context.Background(), tables.LocalSource{Dir: "data"})
	require.NoError(t, err)

	v24 := reg.For(models.CMSHCCV24)
	assert.Equal(t, models.CMSHCCV24, v24.Model())
	assert.Equal(t, []string{"19"}, v24.CategoriesForDiagnosis("E11.9"))
	assert.Equal(t, []string{"138"}, v24.CategoriesForDiagnosis("N18.3"))
	assert.Empty(t, v24.CategoriesForDiagnosis("I10"))

	v28 := reg.For(models.CMSHCCV28)
	assert.Equal(t, []string{"38"}, v28.CategoriesForDiagnosis("E11.9"))
	assert.Equal(t, []string{"329"}, v28.CategoriesForDiagnosis("N18.3"))
	assert.Contains(t, v28.Suppresses("17"), "18")
	assert.Contains(t, v28.Suppresses("17"), "23")
	assert.Empty(t, v28.Suppresses("382"))

	// coefficient lookups ignore case
	want, ok := v24.Coefficient("CNA_F65_69")
	assert.True(t, ok)
	got, ok := v24.Coefficient("cna_f65_69")
	assert.True(t, ok)
	assert.Equal(t, want, got)
	_, ok = v24.Coefficient("CNA_HCC9999")
	assert.False(t, ok)

	assert.True(t, v24.IsChronic("19"))
	assert.False(t, v24.IsChronic("2"))
	assert.False(t, v24.IsChronic("9999"))

	rx := reg.For(models.RxHCCV08)
	assert.Equal(t, []string{"30"}, rx.CategoriesForDiagnosis("E11.22"))
	_, ok = rx.Coefficient("Rx_CE_NoLow_Aged_RXHCC30")
	assert.True(t, ok)

	assert.True(t, reg.EligibleProcedure("99213"))
	assert.True(t, reg.EligibleProcedure(" g0438 "))
	assert.False(t, reg.EligibleProcedure("93000"))
	assert.True(t, reg.ProcedureCount() > 20)
}

func TestLoadBadTables(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantRow   int
		wantCause string
	}{
		{"missing column", tables.DxToCCFile, "dx,cc,model_name\nE119,38,CMS-HCC Model V28\n", 0, `required column "diagnosis_code" not found`},
		{"bad coefficient value", tables.CoefficientsFile, "coefficient,value,model_name\ncna_hcc38,abc,CMS-HCC Model V28\n", 2, "bad value for coefficient CNA_HCC38"},
		{"empty file", tables.HierarchiesFile, "", 0, "load records: empty DataFrame"},
		{"ragged row", tables.ChronicFile, "hcc,is_chronic,model_version,model_domain\nHCC38,Y,V28\n", 0, "wrong number of fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeTables(t, map[string]string{tt.file: tt.content})
			reg, err := tables.Load(context.Background(), tables.LocalSource{Dir: dir})
			assert.Nil(t, reg)

			var tfe *hccErrors.TableFormatError
			require.ErrorAs(t, err, &tfe)
			assert.Equal(t, tt.file, tfe.File)
			assert.Equal(t, tt.wantRow, tfe.Row)
			assert.Contains(t, err.Error(), tt.wantCause)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := writeTables(t, nil)
	require.NoError(t, os.Remove(filepath.Join(dir, tables.ProcedureFile)))

	reg, err := tables.Load(context.Background(), tables.LocalSource{Dir: dir})
	assert.Nil(t, reg)

	var se *hccErrors.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, tables.ProcedureFile, se.Name)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadSkipsUnknownModels(t *testing.T) {
	dir := writeTables(t, map[string]string{
		tables.DxToCCFile: "diagnosis_code,cc,model_name\n" +
			"E119,38,CMS-HCC Model V28\n" +
			"E119,12,CMS-HCC Model V99\n" +
			"E119,7,HHS-HCC Model V07\n",
	})

	reg, err := tables.Load(context.Background(), tables.LocalSource{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"38"}, reg.For(models.CMSHCCV28).CategoriesForDiagnosis("E119"))
}

func TestLoadNormalizesRows(t *testing.T) {
	dir := writeTables(t, map[string]string{
		tables.DxToCCFile: "diagnosis_code,cc,model_name\n" +
			" e11.9 ,HCC38,CMS-HCC Model V28\n" +
			"E119,38,CMS-HCC Model V28\n",
		tables.ChronicFile: "hcc,is_chronic,model_version,model_domain\n" +
			"RXHCC30,Y,V08,RxHCC\n" +
			"RXHCC30,N,V08,RxHCC\n",
	})

	reg, err := tables.Load(context.Background(), tables.LocalSource{Dir: dir})
	require.NoError(t, err)

	// duplicate mappings collapse after normalization
	assert.Equal(t, []string{"38"}, reg.For(models.CMSHCCV28).CategoriesForDiagnosis("E11.9"))
	// first chronic row wins, RXHCC prefix is trimmed
	assert.True(t, reg.For(models.RxHCCV08).IsChronic("30"))
}

func TestTableFiles(t *testing.T) {
	files := tables.TableFiles()
	assert.Len(t, files, 5)
	assert.Contains(t, files, tables.DxToCCFile)
	assert.Contains(t, files, tables.CoefficientsFile)
}
