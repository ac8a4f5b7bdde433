package fetcher

import (
	"html"
	"strings"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/microcosm-cc/bluemonday"
)

// Requirement snippets come back with search-highlight markup such as
// <highlighttext>Python</highlighttext>; only the text is kept.
var snippetPolicy = bluemonday.StrictPolicy()

// searchResponse mirrors one page of the listing service response.
type searchResponse struct {
	Items []apiVacancy `json:"items"`
	Found int          `json:"found"`
	Pages int          `json:"pages"`
	Page  int          `json:"page"`
}

// apiVacancy mirrors a single item. Every nested block may be absent or
// null, so each one is a pointer.
type apiVacancy struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	AlternateURL string      `json:"alternate_url"`
	Employer     *apiNamed   `json:"employer"`
	Salary       *apiSalary  `json:"salary"`
	Employment   *apiNamed   `json:"employment"`
	Snippet      *apiSnippet `json:"snippet"`
	KeySkills    []apiNamed  `json:"key_skills"`
}

type apiNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiSalary struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
	Gross    bool   `json:"gross"`
}

type apiSnippet struct {
	Requirement    *string `json:"requirement"`
	Responsibility *string `json:"responsibility"`
}

func (v *apiVacancy) employerName() string {
	if v.Employer == nil {
		return ""
	}
	return v.Employer.Name
}

func (v *apiVacancy) salaryFrom() *int {
	if v.Salary == nil || v.Salary.From == nil {
		return nil
	}
	from := *v.Salary.From
	return &from
}

func (v *apiVacancy) employmentType() string {
	if v.Employment == nil || v.Employment.Name == "" {
		return vacancy.EmploymentUnspecified
	}
	return v.Employment.Name
}

func (v *apiVacancy) requirementText() string {
	if v.Snippet == nil || v.Snippet.Requirement == nil {
		return ""
	}
	return stripMarkup(*v.Snippet.Requirement)
}

func (v *apiVacancy) taggedSkills() []string {
	if len(v.KeySkills) == 0 {
		return nil
	}
	out := make([]string, 0, len(v.KeySkills))
	for _, ks := range v.KeySkills {
		if ks.Name != "" {
			out = append(out, ks.Name)
		}
	}
	return out
}

func (v *apiVacancy) toRecord() vacancy.Record {
	return vacancy.Record{
		ID:              v.ID,
		Title:           v.Name,
		EmployerName:    v.employerName(),
		SalaryFrom:      v.salaryFrom(),
		URL:             v.AlternateURL,
		EmploymentType:  v.employmentType(),
		RequirementText: v.requirementText(),
		TaggedSkills:    v.taggedSkills(),
	}
}

func stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(snippetPolicy.Sanitize(s)))
}
