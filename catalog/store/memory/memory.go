package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/catalog"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/blevesearch/bleve"
	"golang.org/x/xerrors"
)

var _ catalog.Catalog = (*InMemoryCatalog)(nil)

// InMemoryCatalog keeps the view in process memory and answers text queries
// with an in-memory bleve index.
type InMemoryCatalog struct {
	mu      sync.RWMutex
	records []vacancy.Record
	pos     map[string]int
	ranked  vacancy.RankedSkillList

	idx bleve.Index
}

type memDoc struct {
	Title       string
	Company     string
	Requirement string
	Skills      string
}

// NewInMemoryBleveCatalog returns an empty catalog.
func NewInMemoryBleveCatalog() (*InMemoryCatalog, error) {
	idx, err := newIndex()
	if err != nil {
		return nil, err
	}
	return &InMemoryCatalog{
		idx: idx,
		pos: make(map[string]int),
	}, nil
}

func newIndex() (bleve.Index, error) {
	return bleve.NewMemOnly(bleve.NewIndexMapping())
}

// Publish builds a fresh index for records and swaps it in.
func (m *InMemoryCatalog) Publish(_ context.Context, records []vacancy.Record, ranked vacancy.RankedSkillList) error {
	idx, err := newIndex()
	if err != nil {
		return xerrors.Errorf("publish: %w", err)
	}

	var (
		cp  = make([]vacancy.Record, len(records))
		pos = make(map[string]int, len(records))
		b   = idx.NewBatch()
	)
	for i, r := range records {
		cp[i] = catalog.CopyRecord(r)
		pos[r.ID] = i
		if err = b.Index(r.ID, makeMemDoc(r)); err != nil {
			_ = idx.Close()
			return xerrors.Errorf("publish: %w", err)
		}
	}
	if b.Size() != 0 {
		if err = idx.Batch(b); err != nil {
			_ = idx.Close()
			return xerrors.Errorf("publish: %w", err)
		}
	}

	m.mu.Lock()
	old := m.idx
	m.idx = idx
	m.records = cp
	m.pos = pos
	m.ranked = append(vacancy.RankedSkillList(nil), ranked...)
	m.mu.Unlock()

	return old.Close()
}

// Records returns copies of the vacancies matching f in fetch order.
func (m *InMemoryCatalog) Records(f catalog.Filter) ([]vacancy.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits map[string]struct{}
	if strings.TrimSpace(f.Text) != "" {
		var err error
		if hits, err = m.search(f.Text); err != nil {
			return nil, xerrors.Errorf("records: %w", err)
		}
	}

	var out []vacancy.Record
	for _, r := range m.records {
		if !f.MatchesEmployment(r) {
			continue
		}
		if hits != nil {
			if _, ok := hits[r.ID]; !ok {
				continue
			}
		}
		out = append(out, catalog.CopyRecord(r))
	}
	return out, nil
}

// search returns the IDs of all documents matching text. Must be called with
// the read lock held.
func (m *InMemoryCatalog) search(text string) (map[string]struct{}, error) {
	hits := make(map[string]struct{})
	if len(m.records) == 0 {
		return hits, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(text), len(m.records), 0, false)
	res, err := m.idx.Search(req)
	if err != nil {
		return nil, err
	}
	for _, h := range res.Hits {
		hits[h.ID] = struct{}{}
	}
	return hits, nil
}

func (m *InMemoryCatalog) EmploymentTypes() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return catalog.EmploymentTypes(m.records), nil
}

func (m *InMemoryCatalog) TopSkills() (vacancy.RankedSkillList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(vacancy.RankedSkillList(nil), m.ranked...), nil
}

func (m *InMemoryCatalog) URL(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.pos[id]
	if !ok {
		return "", xerrors.Errorf("url %q: %w", id, catalog.ErrNotFound)
	}
	return m.records[i].URL, nil
}

func (m *InMemoryCatalog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idx.Close()
}

func makeMemDoc(r vacancy.Record) memDoc {
	return memDoc{
		Title:       r.Title,
		Company:     r.EmployerName,
		Requirement: r.RequirementText,
		Skills:      strings.Join(r.TaggedSkills, " "),
	}
}
