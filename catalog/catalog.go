/*
   Materialized view over the last published pipeline run. A presentation
   layer reads vacancies, employment types and the skill ranking from a
   Catalog; every Publish replaces the previous view as a whole.
*/

package catalog

import (
	"context"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"golang.org/x/xerrors"
)

// ErrNotFound is returned when a vacancy is not part of the view.
var ErrNotFound = xerrors.New("not found")

// Filter selects vacancies from the view. Zero values match everything.
type Filter struct {
	// Employment keeps vacancies whose employment type equals it exactly.
	Employment string
	// Text keeps vacancies matching it over title, company, requirement
	// text and tagged skills.
	Text string
}

// Catalog is implemented by the view backends.
type Catalog interface {
	// Publish replaces the view with records and ranked.
	Publish(ctx context.Context, records []vacancy.Record, ranked vacancy.RankedSkillList) error

	// Records returns the vacancies matching f in fetch order.
	Records(f Filter) ([]vacancy.Record, error)

	// EmploymentTypes lists the distinct employment types of the view in
	// first-seen order. The unspecified sentinel is not listed.
	EmploymentTypes() ([]string, error)

	// TopSkills returns the published ranking.
	TopSkills() (vacancy.RankedSkillList, error)

	// URL returns the link of the vacancy with the given ID.
	URL(id string) (string, error)

	Close() error
}

// EmploymentTypes returns the distinct specified employment types of records
// in first-seen order.
func EmploymentTypes(records []vacancy.Record) []string {
	var (
		types []string
		seen  = make(map[string]struct{})
	)
	for i := range records {
		if !records[i].HasEmployment() {
			continue
		}
		et := records[i].EmploymentType
		if _, ok := seen[et]; ok {
			continue
		}
		seen[et] = struct{}{}
		types = append(types, et)
	}
	return types
}

// MatchesEmployment reports whether r passes the employment part of f.
func (f Filter) MatchesEmployment(r vacancy.Record) bool {
	return f.Employment == "" || r.EmploymentType == f.Employment
}

// CopyRecord returns a copy of r that shares no memory with it.
func CopyRecord(r vacancy.Record) vacancy.Record {
	c := r
	if r.SalaryFrom != nil {
		c.SalaryFrom = vacancy.IntPtr(*r.SalaryFrom)
	}
	if r.TaggedSkills != nil {
		c.TaggedSkills = append([]string(nil), r.TaggedSkills...)
	}
	return c
}
