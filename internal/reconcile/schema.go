// Package reconcile merges two tuberculosis burden extracts into one table.
//
// Both extracts describe the same entities, a country in a given year, but
// use different header vocabularies and cover overlapping time windows. The
// reconciler renames each source into the canonical column set, joins them
// on (iso3, year) and resolves every conflicting field in favour of the
// primary source. It performs no I/O: reading and writing files lives in
// package tabular.
package reconcile

// Join key columns.
const (
	ColumnISO3 = "iso3"
	ColumnYear = "year"
)

// ColumnISO2 holds two-letter codes. Namibia's is "NA".
const ColumnISO2 = "iso2"

// Columns is the canonical column set in output order.
var Columns = []string{
	"country",
	ColumnISO2,
	ColumnISO3,
	"iso_numeric",
	"region",
	ColumnYear,
	"population",
	"incidence_rate",
	"incidence_rate_lo",
	"incidence_rate_hi",
	"incidence_num",
	"incidence_num_lo",
	"incidence_num_hi",
	"hiv_in_tb_percent",
	"hiv_in_tb_percent_lo",
	"hiv_in_tb_percent_hi",
	"mort_rate_no_hiv",
	"mort_rate_no_hiv_lo",
	"mort_rate_no_hiv_hi",
	"detection_rate",
	"detection_rate_lo",
	"detection_rate_hi",
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c] = i
	}
	return m
}()

// IsCanonical reports whether name belongs to the canonical column set.
func IsCanonical(name string) bool {
	_, ok := columnIndex[name]
	return ok
}

// ColumnIndex returns the position of a canonical column, or -1.
func ColumnIndex(name string) int {
	if i, ok := columnIndex[name]; ok {
		return i
	}
	return -1
}

// NewMapping maps the headers of the current WHO burden extract
// (2000 onwards, abbreviated codes) to canonical names.
func NewMapping() map[string]string {
	return map[string]string{
		"country":                  "country",
		"iso2":                     "iso2",
		"iso3":                     "iso3",
		"iso_numeric":              "iso_numeric",
		"g_whoregion":              "region",
		"year":                     "year",
		"e_pop_num":                "population",
		"e_inc_100k":               "incidence_rate",
		"e_inc_100k_lo":            "incidence_rate_lo",
		"e_inc_100k_hi":            "incidence_rate_hi",
		"e_inc_num":                "incidence_num",
		"e_inc_num_lo":             "incidence_num_lo",
		"e_inc_num_hi":             "incidence_num_hi",
		"e_tbhiv_prct":             "hiv_in_tb_percent",
		"e_tbhiv_prct_lo":          "hiv_in_tb_percent_lo",
		"e_tbhiv_prct_hi":          "hiv_in_tb_percent_hi",
		"e_mort_exc_tbhiv_100k":    "mort_rate_no_hiv",
		"e_mort_exc_tbhiv_100k_lo": "mort_rate_no_hiv_lo",
		"e_mort_exc_tbhiv_100k_hi": "mort_rate_no_hiv_hi",
		"c_cdr":                    "detection_rate",
		"c_cdr_lo":                 "detection_rate_lo",
		"c_cdr_hi":                 "detection_rate_hi",
	}
}

// OldMapping maps the verbose headers of the historical extract
// (1990 to 2013) to canonical names.
func OldMapping() map[string]string {
	return map[string]string{
		"Country or territory name":               "country",
		"ISO 2-character country/territory code":  "iso2",
		"ISO 3-character country/territory code":  "iso3",
		"ISO numeric country/territory code":      "iso_numeric",
		"Region":                                  "region",
		"Year":                                    "year",
		"Estimated total population number":       "population",
		"Estimated incidence (all forms) per 100 000 population":                                        "incidence_rate",
		"Estimated incidence (all forms) per 100 000 population, low bound":                             "incidence_rate_lo",
		"Estimated incidence (all forms) per 100 000 population, high bound":                            "incidence_rate_hi",
		"Estimated number of incident cases (all forms)":                                                "incidence_num",
		"Estimated number of incident cases (all forms), low bound":                                     "incidence_num_lo",
		"Estimated number of incident cases (all forms), high bound":                                    "incidence_num_hi",
		"Estimated HIV in incident TB (percent)":                                                        "hiv_in_tb_percent",
		"Estimated HIV in incident TB (percent), low bound":                                             "hiv_in_tb_percent_lo",
		"Estimated HIV in incident TB (percent), high bound":                                            "hiv_in_tb_percent_hi",
		"Estimated mortality of TB cases (all forms, excluding HIV) per 100 000 population":             "mort_rate_no_hiv",
		"Estimated mortality of TB cases (all forms, excluding HIV), per 100 000 population, low bound":  "mort_rate_no_hiv_lo",
		"Estimated mortality of TB cases (all forms, excluding HIV), per 100 000 population, high bound": "mort_rate_no_hiv_hi",
		"Case detection rate (all forms), percent":                                                      "detection_rate",
		"Case detection rate (all forms), percent, low bound":                                           "detection_rate_lo",
		"Case detection rate (all forms), percent, high bound":                                          "detection_rate_hi",
	}
}

// ResolveColumns applies mapping to a header and returns, for every
// canonical column the header provides, the source column it is read from.
//
// A mapped column takes its mapped name; an unmapped column is kept only if
// its name is already canonical. Everything else is dropped. Two source
// columns landing on the same canonical name make the header ambiguous.
func ResolveColumns(source string, header []string, mapping map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(Columns))
	for _, col := range header {
		target, ok := mapping[col]
		if !ok {
			target = col
		}
		if !IsCanonical(target) {
			continue
		}
		if prev, dup := resolved[target]; dup {
			return nil, &SchemaError{
				Source: source,
				Column: target,
				Reason: "columns " + quote(prev) + " and " + quote(col) + " both map to it",
			}
		}
		resolved[target] = col
	}

	for _, key := range []string{ColumnISO3, ColumnYear} {
		if _, ok := resolved[key]; !ok {
			return nil, &SchemaError{
				Source: source,
				Column: key,
				Reason: "no column maps to the join key",
			}
		}
	}
	return resolved, nil
}
