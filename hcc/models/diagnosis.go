package models

import "strings"

// NormalizeDiagnosis puts a diagnosis code into table form: trimmed,
// uppercased, decimal point removed. "E11.9" and "e119" both normalize to
// "E119".
func NormalizeDiagnosis(dx string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(dx)), ".", "")
}

// NormalizeCategory puts a condition category into bare form: "HCC19",
// "RXHCC19" and "19" all address category 19.
func NormalizeCategory(cc string) string {
	up := strings.ToUpper(strings.TrimSpace(cc))
	up = strings.TrimPrefix(up, "RXHCC")
	return strings.TrimPrefix(up, "HCC")
}
