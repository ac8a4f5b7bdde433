/*
   Persists the vacancy collection and the skill ranking of a run.
*/

package export

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/skills"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/ElizavetaSytenko/hh-vacancy-parser/export RecordSink,SkillSink

// Sink names used in PersistenceError and WriteResult reporting.
const (
	SinkRecords = "records"
	SinkSkills  = "skills"
)

// EmploymentNotAvailable replaces the unspecified employment sentinel in
// exported rows.
const EmploymentNotAvailable = "N/A"

var (
	// RecordHeader is the header row of the record export.
	RecordHeader = []string{"id", "name", "company", "salary", "url", "skills", "employment"}

	// SkillHeader is the header row of the skill export.
	SkillHeader = []string{"Skill", "Count"}
)

// Run identifies the pipeline run that produced an export.
type Run struct {
	ID uuid.UUID
	At time.Time
}

// Row is the exported projection of a single vacancy.
type Row struct {
	ID      string
	Name    string
	Company string
	// Salary is nil when the vacancy does not disclose one.
	Salary     *int
	URL        string
	Skills     string
	Employment string
}

// Fields returns the row as text columns in RecordHeader order. An absent
// salary is an empty column.
func (r Row) Fields() []string {
	var salary string
	if r.Salary != nil {
		salary = strconv.Itoa(*r.Salary)
	}
	return []string{r.ID, r.Name, r.Company, salary, r.URL, r.Skills, r.Employment}
}

// RecordSink is implemented by destinations for the per-vacancy rows.
type RecordSink interface {
	WriteRecords(ctx context.Context, run Run, rows []Row) error
}

// SkillSink is implemented by destinations for the skill ranking.
type SkillSink interface {
	WriteSkills(ctx context.Context, run Run, ranked vacancy.RankedSkillList) error
}

// PersistenceError reports that one sink could not be written.
type PersistenceError struct {
	Sink string
	Err  error
}

func (e *PersistenceError) Error() string {
	return "persist " + e.Sink + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SinkStatus is the outcome of writing a single sink.
type SinkStatus struct {
	// Rows is the number of rows written; zero when Err is set.
	Rows int
	Err  error
}

// OK reports whether the sink was written.
func (s SinkStatus) OK() bool { return s.Err == nil }

// WriteResult reports the outcome of each sink so a caller can tell which
// product is durable.
type WriteResult struct {
	Records SinkStatus
	Skills  SinkStatus
}

// OK reports whether both sinks were written.
func (r WriteResult) OK() bool { return r.Records.OK() && r.Skills.OK() }

// Partial reports whether exactly one of the sinks was written.
func (r WriteResult) Partial() bool { return r.Records.OK() != r.Skills.OK() }

// Writer projects vacancies into rows and hands rows and ranking to sinks.
type Writer struct {
	ex skills.TokenExtractor
}

// NewWriter returns a Writer that derives the skills column with ex.
func NewWriter(ex skills.TokenExtractor) *Writer {
	return &Writer{ex: ex}
}

// Project converts records into export rows, keeping their order.
func (w *Writer) Project(records []vacancy.Record) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		employment := r.EmploymentType
		if !r.HasEmployment() {
			employment = EmploymentNotAvailable
		}
		var salary *int
		if r.SalaryFrom != nil {
			v := *r.SalaryFrom
			salary = &v
		}
		rows[i] = Row{
			ID:         r.ID,
			Name:       r.Title,
			Company:    r.EmployerName,
			Salary:     salary,
			URL:        r.URL,
			Skills:     strings.Join(w.ex.Extract(r), ", "),
			Employment: employment,
		}
	}
	return rows
}

// Write exports records to recordSink and ranked to skillSink. Both sinks
// are always attempted. The returned error aggregates a *PersistenceError
// for every sink that failed; the WriteResult carries the same information
// per sink.
func (w *Writer) Write(ctx context.Context, run Run, records []vacancy.Record, ranked vacancy.RankedSkillList, recordSink RecordSink, skillSink SkillSink) (WriteResult, error) {
	var (
		res  WriteResult
		err  error
		rows = w.Project(records)
	)

	if sErr := recordSink.WriteRecords(ctx, run, rows); sErr != nil {
		res.Records.Err = &PersistenceError{Sink: SinkRecords, Err: sErr}
		err = multierror.Append(err, res.Records.Err)
	} else {
		res.Records.Rows = len(rows)
	}

	if sErr := skillSink.WriteSkills(ctx, run, ranked); sErr != nil {
		res.Skills.Err = &PersistenceError{Sink: SinkSkills, Err: sErr}
		err = multierror.Append(err, res.Skills.Err)
	} else {
		res.Skills.Rows = len(ranked)
	}

	return res, err
}
