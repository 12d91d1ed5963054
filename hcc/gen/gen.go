// Package gen produces synthetic scoring cohorts: the demographics and
// diagnosis CSVs the batch scorer reads, filled with random but valid
// content. Ages skew toward the Medicare population and diagnosis codes are
// drawn from the active model's mapping table, so a generated cohort always
// produces condition scores.
package gen

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	randomdata "github.com/Pallinder/go-randomdata"
	"github.com/pkg/errors"

	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/seenhealth/hccinfhir/log"
)

// The columns the generated files carry, matching what the batch scorer
// reads.
var (
	DemographicsHeader = []string{"mrn", "age", "sex", "dual_elgbl_cd", "orec", "lti", "new_enrollee", "low_income"}
	DiagnosisHeader    = []string{"mrn", "icd10"}
)

// Member is one synthetic enrollee and the diagnosis history generated
// alongside.
type Member struct {
	MRN         string
	Age         int
	Sex         string
	DualCode    string
	OREC        string
	LTI         bool
	NewEnrollee bool
	LowIncome   bool
	Diagnoses   []string
}

// Cohort returns n synthetic members with diagnosis codes drawn from the
// model's mapping table.
func Cohort(n int, m models.Model, reg *tables.Registry) []Member {
	codes := reg.For(m).Diagnoses()
	members := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		age := memberAge()
		members = append(members, Member{
			MRN:         mbi(),
			Age:         age,
			Sex:         randomdata.StringSample("F", "M"),
			DualCode:    dualCode(),
			OREC:        orec(age),
			LTI:         chance(less),
			NewEnrollee: chance(less),
			LowIncome:   chance(quarter),
			Diagnoses:   draw(codes),
		})
	}
	return members
}

// WriteCSVs writes the cohort as the two batch input files under dir and
// returns their paths, demographics first.
func WriteCSVs(dir string, members []Member) (string, string, error) {
	demoPath := filepath.Join(dir, "cohort_demographics.csv")
	dxPath := filepath.Join(dir, "cohort_diagnoses.csv")

	if err := writeCSV(demoPath, DemographicsHeader, demoRows(members)); err != nil {
		return "", "", err
	}
	if err := writeCSV(dxPath, DiagnosisHeader, dxRows(members)); err != nil {
		return "", "", err
	}
	return demoPath, dxPath, nil
}

func demoRows(members []Member) [][]string {
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{
			m.MRN,
			strconv.Itoa(m.Age),
			m.Sex,
			m.DualCode,
			m.OREC,
			flag(m.LTI),
			flag(m.NewEnrollee),
			flag(m.LowIncome),
		})
	}
	return rows
}

func dxRows(members []Member) [][]string {
	var rows [][]string
	for _, m := range members {
		for _, code := range m.Diagnoses {
			rows = append(rows, []string{m.MRN, code})
		}
	}
	return rows
}

func writeCSV(name string, header []string, rows [][]string) error {
	file, err := os.Create(filepath.Clean(name))
	if err != nil {
		return errors.Wrap(err, "create cohort file")
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Batch.Warnf("Failed to close %s: %s", name, err.Error())
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

type weight float64

const (
	most    weight = 0.75
	quarter weight = 0.25
	less    weight = 0.1
)

// chance is true with probability w.
func chance(w weight) bool {
	return float64(w) >= randomdata.Decimal(1)
}

// memberAge puts three in four members into the Medicare age range.
func memberAge() int {
	if chance(most) {
		return randomdata.Number(65, 96)
	}
	return randomdata.Number(18, 65)
}

func dualCode() string {
	if !chance(quarter) {
		return ""
	}
	return randomdata.StringSample("01", "02", "03", "04", "05", "06", "08")
}

// orec reflects how the member entered Medicare: under 65 is disability,
// sometimes with ESRD; 65 and over mostly age, sometimes disability.
func orec(age int) string {
	if age < 65 {
		return randomdata.StringSample("1", "1", "1", "3")
	}
	return randomdata.StringSample("0", "0", "0", "1")
}

// draw picks one to eight distinct codes from the mapping table.
func draw(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	n := randomdata.Number(1, 9)
	if n > len(codes) {
		n = len(codes)
	}
	seen := make(map[int]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		i := randomdata.Number(len(codes))
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, codes[i])
	}
	return out
}

// mbi builds an identifier in the Medicare beneficiary identifier shape:
// eleven characters alternating digits, letters, and either.
func mbi() string {
	const letters = "ACDEFGHJKMNPQRTUVWXY"
	letter := func() byte { return letters[randomdata.Number(len(letters))] }
	digit := func() byte { return byte('0' + randomdata.Number(10)) }
	alnum := func() byte {
		if randomdata.Boolean() {
			return letter()
		}
		return digit()
	}
	return string([]byte{
		byte('1' + randomdata.Number(9)), letter(), alnum(), digit(),
		letter(), alnum(), digit(), letter(), letter(), digit(), digit(),
	})
}
