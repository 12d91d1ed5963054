package tables

import (
	"context"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/log"
)

// Table file names, as published. The procedure allow-list lags the model
// tables by a payment year.
const (
	DxToCCFile       = "ra_dx_to_cc_2026.csv"
	CoefficientsFile = "ra_coefficients_2026.csv"
	HierarchiesFile  = "ra_hierarchies_2026.csv"
	ChronicFile      = "hcc_is_chronic.csv"
	ProcedureFile    = "ra_eligible_cpt_hcpcs_2025.csv"
)

// TableFiles returns every file name Load fetches from a Source.
func TableFiles() []string {
	return []string{DxToCCFile, CoefficientsFile, HierarchiesFile, ChronicFile, ProcedureFile}
}

// Load fetches every table file from the source and builds the Registry.
// Any unreadable file, missing column, or unparseable value fails the whole
// load; rows naming a model outside the supported set are skipped and
// counted. The returned Registry is immutable.
func Load(ctx context.Context, src Source) (*Registry, error) {
	reg := &Registry{
		tables:     make(map[models.Model]*ModelTables),
		procedures: make(map[string]struct{}),
	}
	for _, m := range models.All() {
		reg.tables[m] = &ModelTables{
			model:        m,
			dxToCC:       make(map[string][]string),
			suppresses:   make(map[string][]string),
			coefficients: make(map[string]float64),
			chronic:      make(map[string]bool),
			catalog:      CatalogFor(m),
		}
	}

	loaders := []struct {
		name string
		load func(*Registry, *tableFile) error
	}{
		{DxToCCFile, loadDxToCC},
		{CoefficientsFile, loadCoefficients},
		{HierarchiesFile, loadHierarchies},
		{ChronicFile, loadChronic},
		{ProcedureFile, loadProcedures},
	}
	for _, l := range loaders {
		tf, err := readTable(ctx, src, l.name)
		if err != nil {
			return nil, err
		}
		if err := l.load(reg, tf); err != nil {
			return nil, err
		}
		if tf.skipped > 0 {
			log.Tables.Warnf("%s: skipped %d rows for models outside the supported set", l.name, tf.skipped)
		}
	}

	for _, t := range reg.tables {
		t.finish()
	}

	log.Tables.WithFields(logrus.Fields{
		"source":     src.String(),
		"models":     len(reg.tables),
		"procedures": len(reg.procedures),
	}).Info("rule tables loaded")
	return reg, nil
}

// tableFile is one parsed CSV: header positions plus data rows.
type tableFile struct {
	name    string
	columns map[string]int
	rows    [][]string
	skipped int
}

func readTable(ctx context.Context, src Source, name string) (*tableFile, error) {
	rc, err := src.Fetch(ctx, name)
	if err != nil {
		return nil, &hccErrors.SourceError{Err: err, Source: src.String(), Name: name}
	}
	defer rc.Close()

	// Trim the Byte Order Marker if it's present
	// See: https://github.com/golang/go/issues/33887
	df := dataframe.ReadCSV(utfbom.SkipOnly(rc), dataframe.HasHeader(true), dataframe.DetectTypes(false))
	if df.Err != nil {
		return nil, &hccErrors.TableFormatError{Err: df.Err, File: name}
	}

	records := df.Records()
	tf := &tableFile{name: name, columns: make(map[string]int)}
	if len(records) == 0 {
		return nil, &hccErrors.TableFormatError{Err: errors.New("no header row"), File: name}
	}
	for idx, col := range records[0] {
		tf.columns[col] = idx
	}
	tf.rows = records[1:]
	return tf, nil
}

func (t *tableFile) require(names ...string) error {
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			return &hccErrors.TableFormatError{
				Err:  errors.Errorf("required column %q not found", name),
				File: t.name,
			}
		}
	}
	return nil
}

func (t *tableFile) cell(row []string, column string) string {
	return strings.TrimSpace(row[t.columns[column]])
}

// modelFor resolves a row's model name, counting rows for unsupported
// models as skipped.
func (t *tableFile) modelFor(name string) (models.Model, bool) {
	m, err := models.Parse(name)
	if err != nil {
		t.skipped++
		return models.ModelUnknown, false
	}
	return m, true
}

func loadDxToCC(reg *Registry, tf *tableFile) error {
	if err := tf.require("diagnosis_code", "cc", "model_name"); err != nil {
		return err
	}
	for _, row := range tf.rows {
		m, ok := tf.modelFor(tf.cell(row, "model_name"))
		if !ok {
			continue
		}
		dx := models.NormalizeDiagnosis(tf.cell(row, "diagnosis_code"))
		cc := trimCCPrefix(tf.cell(row, "cc"))
		if dx == "" || cc == "" {
			continue
		}
		t := reg.tables[m]
		if !contains(t.dxToCC[dx], cc) {
			t.dxToCC[dx] = append(t.dxToCC[dx], cc)
		}
	}
	return nil
}

func loadCoefficients(reg *Registry, tf *tableFile) error {
	if err := tf.require("coefficient", "value", "model_name"); err != nil {
		return err
	}
	for i, row := range tf.rows {
		m, ok := tf.modelFor(tf.cell(row, "model_name"))
		if !ok {
			continue
		}
		key := strings.ToUpper(tf.cell(row, "coefficient"))
		if key == "" {
			continue
		}
		value, err := strconv.ParseFloat(tf.cell(row, "value"), 64)
		if err != nil {
			return &hccErrors.TableFormatError{
				Err:  errors.Wrapf(err, "bad value for coefficient %s", key),
				File: tf.name,
				Row:  i + 2,
			}
		}
		reg.tables[m].coefficients[key] = value
	}
	return nil
}

func loadHierarchies(reg *Registry, tf *tableFile) error {
	if err := tf.require("cc_parent", "cc_child", "model_name"); err != nil {
		return err
	}
	for _, row := range tf.rows {
		m, ok := tf.modelFor(tf.cell(row, "model_name"))
		if !ok {
			continue
		}
		parent := trimCCPrefix(tf.cell(row, "cc_parent"))
		child := trimCCPrefix(tf.cell(row, "cc_child"))
		if parent == "" || child == "" || parent == child {
			continue
		}
		t := reg.tables[m]
		if !contains(t.suppresses[parent], child) {
			t.suppresses[parent] = append(t.suppresses[parent], child)
		}
	}
	return nil
}

// loadChronic reads the chronic-condition flags. The model name is split
// across two columns; the flag column carries Y for chronic. The first row
// for a category wins.
func loadChronic(reg *Registry, tf *tableFile) error {
	if err := tf.require("hcc", "is_chronic", "model_version", "model_domain"); err != nil {
		return err
	}
	for _, row := range tf.rows {
		name := tf.cell(row, "model_domain") + " Model " + tf.cell(row, "model_version")
		m, ok := tf.modelFor(name)
		if !ok {
			continue
		}
		cc := trimCCPrefix(tf.cell(row, "hcc"))
		if cc == "" {
			continue
		}
		t := reg.tables[m]
		if _, seen := t.chronic[cc]; !seen {
			t.chronic[cc] = tf.cell(row, "is_chronic") == "Y"
		}
	}
	return nil
}

func loadProcedures(reg *Registry, tf *tableFile) error {
	if err := tf.require("cpt_hcpcs_code"); err != nil {
		return err
	}
	for _, row := range tf.rows {
		code := strings.ToUpper(tf.cell(row, "cpt_hcpcs_code"))
		if code == "" {
			continue
		}
		reg.procedures[code] = struct{}{}
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
