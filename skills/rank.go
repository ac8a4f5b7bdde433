package skills

import (
	"sort"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
)

// DefaultTopN is the ranking length used when the caller does not ask for a
// specific one.
const DefaultTopN = 5

type tally struct {
	skill string
	count int
	// seq is the position at which the skill was first counted.
	seq int
}

// Rank counts, for every skill token, the number of distinct records that
// contain it and returns the topN most frequent ones. Ties are ordered by
// the position at which a token was first seen in records. A topN <= 0
// selects DefaultTopN. Fewer distinct tokens than topN yields all of them.
func Rank(records []vacancy.Record, ex TokenExtractor, topN int) vacancy.RankedSkillList {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var (
		tallies []*tally
		byToken = make(map[string]*tally)
	)
	for _, r := range records {
		perRecord := make(map[string]struct{})
		for _, tok := range ex.Extract(r) {
			if _, dup := perRecord[tok]; dup {
				continue
			}
			perRecord[tok] = struct{}{}

			t := byToken[tok]
			if t == nil {
				t = &tally{skill: tok, seq: len(tallies)}
				byToken[tok] = t
				tallies = append(tallies, t)
			}
			t.count++
		}
	}

	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].count != tallies[j].count {
			return tallies[i].count > tallies[j].count
		}
		return tallies[i].seq < tallies[j].seq
	})

	if len(tallies) > topN {
		tallies = tallies[:topN]
	}
	ranked := make(vacancy.RankedSkillList, len(tallies))
	for i, t := range tallies {
		ranked[i] = vacancy.SkillCount{Skill: t.skill, Count: t.count}
	}
	return ranked
}
