package ean

import "fmt"

// Spanish and English qualifiers combined with the code to widen web-search
// coverage. The set is fixed; terms are generated once per run.
var (
	trailingQualifiers = []string{
		"producto",
		"código de barras",
		"barcode",
		"upc",
		"histórico",
		"descatalogado",
		"versión anterior",
	}
	leadingQualifiers = []string{
		"código de barras",
		"barcode",
		"EAN",
	}
)

// Terms derives the fixed query-string set for a code: the bare code, the
// code followed by each qualifier, and each leading qualifier followed by
// the code.
func Terms(code Code) []string {
	terms := make([]string, 0, 1+len(trailingQualifiers)+len(leadingQualifiers))
	terms = append(terms, code.String())
	for _, q := range trailingQualifiers {
		terms = append(terms, fmt.Sprintf("%s %s", code, q))
	}
	for _, q := range leadingQualifiers {
		terms = append(terms, fmt.Sprintf("%s %s", q, code))
	}
	return terms
}
