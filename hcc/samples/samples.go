// Package samples serves the claim documents compiled into the module:
// FHIR ExplanationOfBenefit resources and X12 837 transactions used by
// tests, demos, and load generation.
package samples

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

//go:embed data
var sampleData embed.FS

// EOB returns packaged ExplanationOfBenefit sample n, decoded. Three cases
// ship: 1 is an inpatient stay, 2 a professional claim with office visits,
// 3 a hospital outpatient visit.
func EOB(n int) (map[string]interface{}, error) {
	if n < 1 || n > 3 {
		return nil, errors.Errorf("no packaged EOB sample %d, cases run 1 through 3", n)
	}
	raw, err := sampleData.ReadFile(fmt.Sprintf("data/sample_eob_%d.json", n))
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "sample EOB %d", n)
	}
	return out, nil
}

// EOBList returns the first limit resources from the packaged NDJSON set
// of 200. A non-positive limit returns the whole set.
func EOBList(limit int) ([]map[string]interface{}, error) {
	f, err := sampleData.Open("data/sample_eob_200.ndjson")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []map[string]interface{}{}
	dec := json.NewDecoder(f)
	for limit <= 0 || len(out) < limit {
		var resource map[string]interface{}
		if err := dec.Decode(&resource); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "sample EOB list")
		}
		out = append(out, resource)
	}
	return out, nil
}

// X12 returns packaged 837 sample n. Cases run 0 through 12 and cover
// professional and institutional claims; case 12 carries three claims in
// one transaction.
func X12(n int) (string, error) {
	if n < 0 || n > 12 {
		return "", errors.Errorf("no packaged 837 sample %d, cases run 0 through 12", n)
	}
	raw, err := sampleData.ReadFile(fmt.Sprintf("data/sample_837_%d.txt", n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// X12List returns the numbered 837 samples, or all thirteen when none are
// named.
func X12List(ns ...int) ([]string, error) {
	if len(ns) == 0 {
		for n := 0; n <= 12; n++ {
			ns = append(ns, n)
		}
	}
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		sample, err := X12(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, nil
}
