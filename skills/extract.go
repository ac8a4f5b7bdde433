/*
   Derives normalized skill tokens from job postings and ranks them by
   how many postings mention them.
*/

package skills

import (
	"strings"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
)

// DefaultVocabulary is the reference list of skill keywords matched against
// a posting's requirement text.
//
// Matching is plain substring containment, so an entry also matches inside
// longer words: "java" matches "javascript" and "sql" matches "postgresql".
// The list is kept short to limit such overlaps.
var DefaultVocabulary = []string{
	"python", "java", "sql", "git", "docker",
	"javascript", "linux", "aws", "postgresql", "mysql",
}

// TokenExtractor is implemented by types that can derive the skill tokens of
// a single record.
type TokenExtractor interface {
	Extract(r vacancy.Record) []string
}

var _ TokenExtractor = (*Extractor)(nil)

// Extractor matches a fixed vocabulary against requirement text and merges
// the result with the record's tagged skills.
type Extractor struct {
	vocabulary []string
}

// NewExtractor returns an Extractor for the given vocabulary. When no words
// are supplied DefaultVocabulary is used.
func NewExtractor(vocabulary ...string) *Extractor {
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}

	words := make([]string, 0, len(vocabulary))
	seen := make(map[string]struct{}, len(vocabulary))
	for _, w := range vocabulary {
		w = normalize(w)
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return &Extractor{vocabulary: words}
}

// Vocabulary returns a copy of the normalized reference vocabulary.
func (e *Extractor) Vocabulary() []string {
	return append([]string(nil), e.vocabulary...)
}

// Extract returns the distinct skill tokens of r in first-seen order:
// vocabulary matches in vocabulary order followed by the tagged skills in
// service order. Absent fields contribute nothing.
func (e *Extractor) Extract(r vacancy.Record) []string {
	var (
		tokens []string
		seen   = make(map[string]struct{})
	)
	add := func(tok string) {
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	if r.RequirementText != "" {
		text := strings.ToLower(r.RequirementText)
		for _, w := range e.vocabulary {
			if strings.Contains(text, w) {
				add(w)
			}
		}
	}

	// Tagged skills are structured data from the service and bypass the
	// vocabulary.
	for _, s := range r.TaggedSkills {
		if tok := normalize(s); tok != "" {
			add(tok)
		}
	}
	return tokens
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
