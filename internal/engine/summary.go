package engine

import (
	"context"
	"fmt"
	"strings"
)

// Filter narrows a summary. Zero values disable a filter.
type Filter struct {
	Region   string
	ISO3     string
	FromYear int
	ToYear   int
}

// Validate rejects an inverted year range.
func (f Filter) Validate() error {
	if f.FromYear != 0 && f.ToYear != 0 && f.FromYear > f.ToYear {
		return fmt.Errorf("invalid year range: %d is after %d", f.FromYear, f.ToYear)
	}
	return nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Region != "" {
		conds = append(conds, "region = ?")
		args = append(args, f.Region)
	}
	if f.ISO3 != "" {
		conds = append(conds, "iso3 = ?")
		args = append(args, f.ISO3)
	}
	if f.FromYear != 0 {
		conds = append(conds, "year >= ?")
		args = append(args, f.FromYear)
	}
	if f.ToYear != 0 {
		conds = append(conds, "year <= ?")
		args = append(args, f.ToYear)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// summarySQL aggregates the combined table per year. deaths re-derives the
// absolute death count from the rate per 100 000 and the population.
const summarySQL = `SELECT year,
  COUNT(DISTINCT iso3) AS countries,
  SUM(CAST(population AS DOUBLE)) AS population,
  SUM(CAST(incidence_num AS DOUBLE)) AS incident_cases,
  AVG(CAST(incidence_rate AS DOUBLE)) AS mean_incidence_rate,
  SUM(CAST(mort_rate_no_hiv AS DOUBLE) * CAST(population AS DOUBLE) / 100000) AS deaths
FROM ` + TableName

// Summary returns one row per year of the combined table.
func (e *Engine) Summary(ctx context.Context, f Filter) (*QueryResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := f.where()
	return e.Query(ctx, summarySQL+where+" GROUP BY year ORDER BY year", args...)
}
