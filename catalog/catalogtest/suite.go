package catalogtest

import (
	"context"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/catalog"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of catalog-related tests that can be
// executed against any type that implements catalog.Catalog.
type SuiteBase struct {
	c catalog.Catalog
}

// SetCatalog configures the test-suite to run all tests against c.
func (s *SuiteBase) SetCatalog(c catalog.Catalog) {
	s.c = c
}

func fixture() []vacancy.Record {
	return []vacancy.Record{
		{ID: "10", Title: "Backend engineer", EmployerName: "Acme", URL: "https://hh.ru/vacancy/10", EmploymentType: "Полная занятость", RequirementText: "Experience with Kubernetes", TaggedSkills: []string{"Go"}},
		{ID: "11", Title: "Data analyst", EmployerName: "Globex", SalaryFrom: vacancy.IntPtr(90000), URL: "https://hh.ru/vacancy/11", EmploymentType: "Частичная занятость", RequirementText: "Strong SQL"},
		{ID: "12", Title: "Python developer", URL: "https://hh.ru/vacancy/12", EmploymentType: vacancy.EmploymentUnspecified, TaggedSkills: []string{"Django"}},
		{ID: "13", Title: "Platform engineer", EmployerName: "Initech", URL: "https://hh.ru/vacancy/13", EmploymentType: "Полная занятость", RequirementText: "Terraform and SQL"},
	}
}

func ids(records []vacancy.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func (s *SuiteBase) publish(c *gc.C) {
	ranked := vacancy.RankedSkillList{{Skill: "sql", Count: 2}, {Skill: "go", Count: 1}}
	c.Assert(s.c.Publish(context.TODO(), fixture(), ranked), gc.IsNil)
}

// TestEmptyView verifies the view before anything is published.
func (s *SuiteBase) TestEmptyView(c *gc.C) {
	got, err := s.c.Records(catalog.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 0)

	top, err := s.c.TopSkills()
	c.Assert(err, gc.IsNil)
	c.Assert(top, gc.HasLen, 0)

	_, err = s.c.URL("10")
	c.Assert(xerrors.Is(err, catalog.ErrNotFound), gc.Equals, true)
}

// TestAllRecordsInFetchOrder verifies that an empty filter returns every
// published record in fetch order.
func (s *SuiteBase) TestAllRecordsInFetchOrder(c *gc.C) {
	s.publish(c)

	got, err := s.c.Records(catalog.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.DeepEquals, fixture())
}

// TestEmploymentFilter verifies exact matching on the employment type.
func (s *SuiteBase) TestEmploymentFilter(c *gc.C) {
	s.publish(c)

	got, err := s.c.Records(catalog.Filter{Employment: "Полная занятость"})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.DeepEquals, []string{"10", "13"})

	got, err = s.c.Records(catalog.Filter{Employment: "Стажировка"})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 0)
}

// TestTextFilter verifies full-text matching, alone and combined with the
// employment filter.
func (s *SuiteBase) TestTextFilter(c *gc.C) {
	s.publish(c)

	got, err := s.c.Records(catalog.Filter{Text: "sql"})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.DeepEquals, []string{"11", "13"})

	got, err = s.c.Records(catalog.Filter{Text: "sql", Employment: "Полная занятость"})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.DeepEquals, []string{"13"})

	got, err = s.c.Records(catalog.Filter{Text: "django"})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.DeepEquals, []string{"12"})

	got, err = s.c.Records(catalog.Filter{Text: "globex"})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(got), gc.DeepEquals, []string{"11"})

	got, err = s.c.Records(catalog.Filter{Text: "cobol"})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 0)
}

// TestEmploymentTypes verifies first-seen order without the unspecified
// sentinel.
func (s *SuiteBase) TestEmploymentTypes(c *gc.C) {
	s.publish(c)

	got, err := s.c.EmploymentTypes()
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.DeepEquals, []string{"Полная занятость", "Частичная занятость"})
}

// TestTopSkillsAndURL verifies the ranking and link lookups.
func (s *SuiteBase) TestTopSkillsAndURL(c *gc.C) {
	s.publish(c)

	top, err := s.c.TopSkills()
	c.Assert(err, gc.IsNil)
	c.Assert(top, gc.DeepEquals, vacancy.RankedSkillList{{Skill: "sql", Count: 2}, {Skill: "go", Count: 1}})

	url, err := s.c.URL("12")
	c.Assert(err, gc.IsNil)
	c.Assert(url, gc.Equals, "https://hh.ru/vacancy/12")

	_, err = s.c.URL("999")
	c.Assert(xerrors.Is(err, catalog.ErrNotFound), gc.Equals, true)
}

// TestPublishReplacesView verifies that a second publish drops everything
// from the first one.
func (s *SuiteBase) TestPublishReplacesView(c *gc.C) {
	s.publish(c)

	next := []vacancy.Record{{ID: "20", Title: "SRE", URL: "https://hh.ru/vacancy/20", EmploymentType: "Проектная работа"}}
	c.Assert(s.c.Publish(context.TODO(), next, nil), gc.IsNil)

	got, err := s.c.Records(catalog.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.DeepEquals, next)

	got, err = s.c.Records(catalog.Filter{Text: "sql"})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.HasLen, 0)

	types, err := s.c.EmploymentTypes()
	c.Assert(err, gc.IsNil)
	c.Assert(types, gc.DeepEquals, []string{"Проектная работа"})

	top, err := s.c.TopSkills()
	c.Assert(err, gc.IsNil)
	c.Assert(top, gc.HasLen, 0)

	_, err = s.c.URL("10")
	c.Assert(xerrors.Is(err, catalog.ErrNotFound), gc.Equals, true)
}
