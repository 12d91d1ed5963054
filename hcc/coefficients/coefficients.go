// Package coefficients resolves the demographic coefficient prefix of a
// scoring call and accumulates the score partitions from the model's
// coefficient table.
package coefficients

import (
	"sort"

	"github.com/seenhealth/hccinfhir/hcc/interactions"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
)

// Breakdown is the weighted outcome of one scoring call. Total is always
// Demographics + ConditionOnly, computed as that sum, so the published
// invariant holds exactly rather than within rounding.
type Breakdown struct {
	Total         float64
	Demographics  float64
	ConditionOnly float64
	ChronicOnly   float64
	// Coefficients holds every term that resolved to a table entry, keyed
	// by bare term name: the demographic category label, the condition
	// category, or the interaction name.
	Coefficients map[string]float64
}

// Prefix resolves the coefficient key prefix for a beneficiary under a
// model. Institutional status wins over new-enrollee status; the community
// cells split by entitlement and dual tier.
func Prefix(d models.Demographics, m models.Model) string {
	switch {
	case m.Rx():
		return rxPrefix(d)
	case m.ESRD():
		return esrdPrefix(d)
	default:
		return communityPrefix(d)
	}
}

func communityPrefix(d models.Demographics) string {
	if d.LTI {
		return "INS_"
	}
	if d.NewEnrollee {
		if d.SNP {
			return "SNPNE_"
		}
		return "NE_"
	}
	switch {
	case d.FBDual:
		if d.Disabled {
			return "CFD_"
		}
		return "CFA_"
	case d.PBDual:
		if d.Disabled {
			return "CPD_"
		}
		return "CPA_"
	default:
		if d.Disabled {
			return "CND_"
		}
		return "CNA_"
	}
}

// esrdPrefix picks among the dialysis, transplant and functioning-graft
// segments. Months one through three after transplant score under the
// transplant segment; from month four on the graft segments apply, split by
// institutional status.
func esrdPrefix(d models.Demographics) string {
	if d.NewEnrollee {
		if d.GraftMonths > 0 {
			return "GNE_"
		}
		return "DNE_"
	}
	switch {
	case d.GraftMonths >= 1 && d.GraftMonths <= 3:
		return "DC_"
	case d.GraftMonths >= 4:
		if d.LTI {
			return "GI_"
		}
		return "GC_"
	default:
		return "DI_"
	}
}

func rxPrefix(d models.Demographics) string {
	if d.LTI {
		return "Rx_CE_LTI_"
	}
	if d.NewEnrollee {
		if d.LowIncome {
			return "Rx_NE_Low_"
		}
		return "Rx_NE_NoLow_"
	}
	income := "NoLow"
	if d.LowIncome {
		income = "Low"
	}
	age := "Aged"
	if d.NonAged {
		age = "NonAged"
	}
	return "Rx_CE_" + income + "_" + age + "_"
}

// conditionKey joins a category with its family spelling, HCC19 for the
// medical models and RXHCC19 for the drug models.
func conditionKey(family models.Family, cc string) string {
	if family == models.FamilyV4 {
		return "RXHCC" + cc
	}
	return "HCC" + cc
}

// Score accumulates the four score partitions. Keys absent under the
// resolved prefix contribute zero without error; every key that resolves is
// recorded in the breakdown's coefficient map under its bare term name.
// Accumulation runs in sorted key order so identical inputs always produce
// bit-identical sums.
func Score(d models.Demographics, resolved []string, inter map[string]float64, t *tables.ModelTables) Breakdown {
	b := Breakdown{Coefficients: make(map[string]float64)}
	prefix := Prefix(d, t.Model())
	linked := interactions.DemographicLinked(t)

	if v, ok := t.Coefficient(prefix + d.Category); ok {
		b.Demographics += v
		b.Coefficients[d.Category] = v
	}

	names := make([]string, 0, len(inter))
	for name := range inter {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if inter[name] == 0 {
			continue
		}
		v, ok := t.Coefficient(prefix + name)
		if !ok {
			continue
		}
		b.Coefficients[name] = v
		if linked[name] {
			b.Demographics += v
		} else {
			b.ConditionOnly += v
		}
	}

	family := t.Model().Family()
	ccs := append([]string(nil), resolved...)
	sort.Strings(ccs)
	for _, cc := range ccs {
		v, ok := t.Coefficient(prefix + conditionKey(family, cc))
		if !ok {
			continue
		}
		b.Coefficients[cc] = v
		b.ConditionOnly += v
		if t.IsChronic(cc) {
			b.ChronicOnly += v
		}
	}

	b.Total = b.Demographics + b.ConditionOnly
	return b
}
