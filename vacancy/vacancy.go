package vacancy

// EmploymentUnspecified is stored in Record.EmploymentType when the listing
// service does not report an employment block for a posting.
const EmploymentUnspecified = "unspecified"

// Record is a single job posting as returned by the listing service.
type Record struct {
	// ID is unique within one fetch session.
	ID    string
	Title string

	// EmployerName is empty when the posting has no employer block.
	EmployerName string

	// SalaryFrom is nil when the salary is not disclosed.
	SalaryFrom *int

	URL string

	// EmploymentType holds EmploymentUnspecified when absent.
	EmploymentType string

	// RequirementText is the free-text requirement snippet with markup
	// stripped. Empty when absent.
	RequirementText string

	// TaggedSkills are the skills attached to the posting by the service
	// itself, in service order.
	TaggedSkills []string
}

// HasEmployment reports whether the service supplied an employment type.
func (r *Record) HasEmployment() bool {
	return r.EmploymentType != "" && r.EmploymentType != EmploymentUnspecified
}

// Query describes a search against the listing service. The page cursor is
// owned by the fetcher and is not part of the query.
type Query struct {
	// Text is the free-text search expression, e.g. "Python OR Java".
	Text string
	// Area is the service's geographic area identifier.
	Area string
	// PerPage is the page size; the fetcher clamps it to the service maximum.
	PerPage int
}

// SkillCount pairs a skill token with the number of distinct records that
// contain it.
type SkillCount struct {
	Skill string
	Count int
}

// RankedSkillList is ordered by Count descending; equal counts keep the order
// in which the skills were first seen.
type RankedSkillList []SkillCount

// Skills returns the skill tokens in ranked order.
func (l RankedSkillList) Skills() []string {
	out := make([]string, len(l))
	for i, sc := range l {
		out[i] = sc.Skill
	}
	return out
}

// IntPtr is a convenience for populating optional integer fields.
func IntPtr(v int) *int { return &v }
