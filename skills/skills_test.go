package skills

import (
	"testing"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ExtractorTestSuite))
var _ = gc.Suite(new(RankTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type ExtractorTestSuite struct {
	ex *Extractor
}

func (s *ExtractorTestSuite) SetUpTest(c *gc.C) {
	s.ex = NewExtractor()
}

func (s *ExtractorTestSuite) TestRequirementTextMatches(c *gc.C) {
	got := s.ex.Extract(vacancy.Record{RequirementText: "Need Python and SQL"})
	c.Assert(got, gc.DeepEquals, []string{"python", "sql"})
}

func (s *ExtractorTestSuite) TestTaggedSkillsBypassVocabulary(c *gc.C) {
	got := s.ex.Extract(vacancy.Record{
		TaggedSkills: []string{"Kubernetes", " Английский язык ", ""},
	})
	c.Assert(got, gc.DeepEquals, []string{"kubernetes", "английский язык"})
}

func (s *ExtractorTestSuite) TestDuplicatesCollapse(c *gc.C) {
	got := s.ex.Extract(vacancy.Record{
		RequirementText: "python, Python and more PYTHON",
		TaggedSkills:    []string{"Python", "python", "Git"},
	})
	c.Assert(got, gc.DeepEquals, []string{"python", "git"})
}

func (s *ExtractorTestSuite) TestSubstringOverlapIsKept(c *gc.C) {
	got := s.ex.Extract(vacancy.Record{RequirementText: "JavaScript/TypeScript, PostgreSQL"})
	c.Assert(got, gc.DeepEquals, []string{"java", "sql", "javascript", "postgresql"})
}

func (s *ExtractorTestSuite) TestAbsentFieldsContributeNothing(c *gc.C) {
	c.Assert(s.ex.Extract(vacancy.Record{ID: "1", Title: "Python developer"}), gc.HasLen, 0)
}

func (s *ExtractorTestSuite) TestResultIsSubsetOfVocabularyAndTags(c *gc.C) {
	r := vacancy.Record{
		RequirementText: "Linux, AWS, Docker, Go, Rust, MySQL",
		TaggedSkills:    []string{"Go", "Terraform"},
	}
	allowed := make(map[string]bool)
	for _, w := range DefaultVocabulary {
		allowed[w] = true
	}
	allowed["go"] = true
	allowed["terraform"] = true

	got := s.ex.Extract(r)
	seen := make(map[string]bool)
	for _, tok := range got {
		c.Assert(allowed[tok], gc.Equals, true, gc.Commentf("unexpected token %q", tok))
		c.Assert(seen[tok], gc.Equals, false, gc.Commentf("duplicate token %q", tok))
		seen[tok] = true
	}
	c.Assert(s.ex.Extract(r), gc.DeepEquals, got)
}

func (s *ExtractorTestSuite) TestCustomVocabularyIsNormalized(c *gc.C) {
	ex := NewExtractor(" Go ", "KAFKA", "go", "")
	c.Assert(ex.Vocabulary(), gc.DeepEquals, []string{"go", "kafka"})
	c.Assert(ex.Extract(vacancy.Record{RequirementText: "Kafka and Golang"}), gc.DeepEquals, []string{"go", "kafka"})
}

type RankTestSuite struct{}

func (s *RankTestSuite) TestScenarioTwoRecords(c *gc.C) {
	records := []vacancy.Record{
		{ID: "1", RequirementText: "Need Python and SQL", TaggedSkills: []string{"Docker"}},
		{ID: "2", TaggedSkills: []string{"python", "git"}},
	}

	got := Rank(records, NewExtractor(), 5)
	c.Assert(got, gc.DeepEquals, vacancy.RankedSkillList{
		{Skill: "python", Count: 2},
		{Skill: "sql", Count: 1},
		{Skill: "docker", Count: 1},
		{Skill: "git", Count: 1},
	})
}

func (s *RankTestSuite) TestCountsDistinctRecordsNotOccurrences(c *gc.C) {
	records := []vacancy.Record{
		{RequirementText: "python python python", TaggedSkills: []string{"Python"}},
		{RequirementText: "docker"},
		{RequirementText: "docker"},
	}

	got := Rank(records, NewExtractor(), 5)
	c.Assert(got, gc.DeepEquals, vacancy.RankedSkillList{
		{Skill: "docker", Count: 2},
		{Skill: "python", Count: 1},
	})
}

func (s *RankTestSuite) TestTruncatesAndBreaksTiesByFirstSeen(c *gc.C) {
	records := []vacancy.Record{
		{TaggedSkills: []string{"f", "e", "d"}},
		{TaggedSkills: []string{"c", "b", "a"}},
		{TaggedSkills: []string{"a"}},
	}

	got := Rank(records, NewExtractor(), 3)
	c.Assert(got, gc.DeepEquals, vacancy.RankedSkillList{
		{Skill: "a", Count: 2},
		{Skill: "f", Count: 1},
		{Skill: "e", Count: 1},
	})
}

func (s *RankTestSuite) TestDefaultTopN(c *gc.C) {
	records := []vacancy.Record{{TaggedSkills: []string{"a", "b", "c", "d", "e", "f", "g"}}}
	c.Assert(Rank(records, NewExtractor(), 0), gc.HasLen, DefaultTopN)
}

func (s *RankTestSuite) TestEmptyInput(c *gc.C) {
	c.Assert(Rank(nil, NewExtractor(), 5), gc.HasLen, 0)
}

func (s *RankTestSuite) TestRankIsDeterministic(c *gc.C) {
	var records []vacancy.Record
	for i := 0; i < 50; i++ {
		records = append(records, vacancy.Record{
			RequirementText: "git linux aws",
			TaggedSkills:    []string{string(rune('a' + i%7))},
		})
	}

	first := Rank(records, NewExtractor(), 10)
	for i := 0; i < 20; i++ {
		c.Assert(Rank(records, NewExtractor(), 10), gc.DeepEquals, first)
	}

	var sum int
	for i, sc := range first {
		sum += sc.Count
		if i > 0 {
			c.Assert(sc.Count <= first[i-1].Count, gc.Equals, true)
		}
	}
	c.Assert(sum <= len(records)*4, gc.Equals, true)
}
