// Package batch scores member cohorts from flat files: a demographics CSV
// and a diagnosis CSV joined on mrn, one result row per member per model.
// One bad member costs that member, never the batch.
package batch

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/raf"
	"github.com/seenhealth/hccinfhir/log"
)

// OutputHeader is the column set every result file starts with.
var OutputHeader = []string{"mrn", "model", "risk_score", "demographics_score", "chronic_score", "hcc_list"}

// Config names the batch inputs and output. Models defaults to the V28
// community model when empty.
type Config struct {
	DemographicsFile string
	DiagnosisFile    string
	OutputFile       string
	Models           []models.Model
}

// Result summarizes one batch run.
type Result struct {
	// Members carried into scoring after the join.
	Members int
	// Rows written, one per member per model.
	Rows int
	// Members or member-model pairs skipped: demographics that would not
	// parse, or a model that rejected the member.
	Failed int
	// Diagnosis rows whose mrn appears nowhere in the demographics file.
	UnknownMRNs int
}

// Run joins the cohort files, scores every member against each configured
// model, and writes the result CSV. Run fails only when a file cannot be
// read or written; member-level failures are logged, counted, and skipped.
func Run(calc *raf.Calculator, cfg Config) (*Result, error) {
	if len(cfg.Models) == 0 {
		cfg.Models = []models.Model{models.CMSHCCV28}
	}

	demo, err := readFrame(cfg.DemographicsFile)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(demo, cfg.DemographicsFile, "mrn", "age", "sex"); err != nil {
		return nil, err
	}
	dx, err := readFrame(cfg.DiagnosisFile)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(dx, cfg.DiagnosisFile, "mrn", "icd10"); err != nil {
		return nil, err
	}

	res := &Result{UnknownMRNs: countUnknown(demo, dx)}

	joined := demo.InnerJoin(dx, "mrn")
	if joined.Err != nil {
		return nil, errors.Wrapf(joined.Err, "join %s with %s",
			filepath.Base(cfg.DemographicsFile), filepath.Base(cfg.DiagnosisFile))
	}

	members, failed := groupMembers(joined)
	res.Members = len(members)
	res.Failed = failed

	out, err := os.Create(filepath.Clean(cfg.OutputFile))
	if err != nil {
		return nil, errors.Wrap(err, "create result file")
	}

	w := csv.NewWriter(out)
	if err := w.Write(OutputHeader); err != nil {
		out.Close()
		return nil, errors.Wrap(err, "write results")
	}
	for _, mem := range members {
		for _, m := range cfg.Models {
			opts := mem.opts
			opts.Model = m
			result, err := calc.Score(mem.codes, opts)
			if err != nil {
				log.Batch.WithFields(logrus.Fields{
					"mrn":   mem.mrn,
					"model": m.String(),
				}).Warn(err)
				res.Failed++
				continue
			}
			row := []string{
				mem.mrn,
				m.String(),
				formatScore(result.RiskScore),
				formatScore(result.RiskScoreDemographics),
				formatScore(result.RiskScoreChronicOnly),
				strings.Join(result.CCList, " "),
			}
			if err := w.Write(row); err != nil {
				out.Close()
				return nil, errors.Wrap(err, "write results")
			}
			res.Rows++
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return nil, errors.Wrap(err, "write results")
	}
	if err := out.Close(); err != nil {
		return nil, errors.Wrap(err, "write results")
	}

	log.Batch.WithFields(logrus.Fields{
		"members": res.Members,
		"rows":    res.Rows,
		"failed":  res.Failed,
		"output":  cfg.OutputFile,
	}).Info("cohort scored")
	return res, nil
}

type member struct {
	mrn   string
	opts  raf.ScoreOptions
	codes []string
}

// groupMembers collapses the joined rows into one member per mrn with the
// diagnosis codes collected in file order. Members whose demographics do
// not parse are skipped and counted.
func groupMembers(df dataframe.DataFrame) ([]*member, int) {
	records := df.Records()
	if len(records) == 0 {
		return nil, 0
	}
	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	cell := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	byMRN := make(map[string]*member)
	failed := make(map[string]bool)
	var ordered []*member
	for _, row := range records[1:] {
		mrn := cell(row, "mrn")
		if mrn == "" || failed[mrn] {
			continue
		}
		mem, ok := byMRN[mrn]
		if !ok {
			age, err := strconv.Atoi(cell(row, "age"))
			if err != nil {
				log.Batch.WithFields(logrus.Fields{"mrn": mrn}).
					Warnf("unreadable age %q, member skipped", cell(row, "age"))
				failed[mrn] = true
				continue
			}
			mem = &member{
				mrn:  mrn,
				opts: raf.ScoreOptions{
					Age:         age,
					Sex:         cell(row, "sex"),
					DualCode:    cell(row, "dual_elgbl_cd"),
					OREC:        cell(row, "orec"),
					CREC:        cell(row, "crec"),
					LTI:         parseFlag(cell(row, "lti")),
					NewEnrollee: parseFlag(cell(row, "new_enrollee")),
					SNP:         parseFlag(cell(row, "snp")),
					LowIncome:   parseFlag(cell(row, "low_income")),
					GraftMonths: atoiOrZero(cell(row, "graft_months")),
				},
			}
			byMRN[mrn] = mem
			ordered = append(ordered, mem)
		}
		if code := cell(row, "icd10"); code != "" {
			mem.codes = append(mem.codes, code)
		}
	}
	return ordered, len(failed)
}

// countUnknown reports diagnosis rows that will not survive the join.
func countUnknown(demo, dx dataframe.DataFrame) int {
	known := make(map[string]bool)
	for _, mrn := range frameColumn(demo, "mrn") {
		known[strings.TrimSpace(mrn)] = true
	}
	unknown := 0
	missing := make(map[string]bool)
	for _, mrn := range frameColumn(dx, "mrn") {
		mrn = strings.TrimSpace(mrn)
		if mrn != "" && !known[mrn] {
			unknown++
			missing[mrn] = true
		}
	}
	if unknown > 0 {
		log.Batch.Warnf("%d diagnosis rows for %d members missing from the demographics file",
			unknown, len(missing))
	}
	return unknown
}

func readFrame(name string) (dataframe.DataFrame, error) {
	file, err := os.Open(filepath.Clean(name))
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "open cohort file")
	}
	defer file.Close()

	// Trim the Byte Order Marker if it's present
	// See: https://github.com/golang/go/issues/33887
	df := dataframe.ReadCSV(utfbom.SkipOnly(file), dataframe.HasHeader(true), dataframe.DetectTypes(false))
	if df.Err != nil {
		return df, &hccErrors.TableFormatError{Err: df.Err, File: filepath.Base(name)}
	}
	return df, nil
}

func requireColumns(df dataframe.DataFrame, name string, columns ...string) error {
	present := make(map[string]bool)
	for _, col := range df.Names() {
		present[col] = true
	}
	for _, col := range columns {
		if !present[col] {
			return &hccErrors.TableFormatError{
				Err:  errors.Errorf("required column %q not found", col),
				File: filepath.Base(name),
			}
		}
	}
	return nil
}

func frameColumn(df dataframe.DataFrame, name string) []string {
	for _, col := range df.Names() {
		if col == name {
			return df.Col(name).Records()
		}
	}
	return nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "y", "yes", "t", "true":
		return true
	}
	return false
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
