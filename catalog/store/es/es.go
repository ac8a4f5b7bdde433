package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/catalog"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"golang.org/x/xerrors"
)

const (
	recordIndex = "vacancies"
	viewIndex   = "vacancy_views"
	viewDocID   = "current"
)

const batchSize = 100

var _ catalog.Catalog = (*ESCatalog)(nil)

type esErrorRes struct {
	Err struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (e esErrorRes) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Type, e.Err.Reason)
}

type esDoc struct {
	Seq          int      `json:"Seq"`
	ID           string   `json:"ID"`
	Title        string   `json:"Title"`
	Company      string   `json:"Company"`
	SalaryFrom   *int     `json:"SalaryFrom"`
	URL          string   `json:"URL"`
	Employment   string   `json:"Employment"`
	Requirement  string   `json:"Requirement"`
	TaggedSkills []string `json:"TaggedSkills"`
}

// esView holds the per-run data that is not per vacancy.
type esView struct {
	PublishedAt     time.Time      `json:"PublishedAt"`
	EmploymentTypes []string       `json:"EmploymentTypes"`
	TopSkills       []esSkillCount `json:"TopSkills"`
}

type esSkillCount struct {
	Skill string `json:"Skill"`
	Count int    `json:"Count"`
}

type esQuery struct {
	Query struct {
		Bool struct {
			Must   []interface{} `json:"must,omitempty"`
			Filter []interface{} `json:"filter,omitempty"`
		} `json:"bool"`
	} `json:"query"`
	Sort []map[string]string `json:"sort"`
	From int                 `json:"from"`
	Size int                 `json:"size"`
}

type esSearchRes struct {
	Hits struct {
		Total struct {
			Count int `json:"value"`
		} `json:"total"`
		HitList []struct {
			DocSource esDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkRes struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Error *esErrorRes `json:"error"`
	} `json:"items"`
}

// ESCatalog keeps the view in Elasticsearch so that it can be shared between
// processes. Publishing recreates the record index; readers that query
// while a publish is in flight may observe an incomplete view.
type ESCatalog struct {
	es *elasticsearch.Client
}

// NewESCatalog connects to nodes and makes sure the indices exist.
func NewESCatalog(nodes []string) (*ESCatalog, error) {
	cfg := elasticsearch.Config{
		Addresses: nodes,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if err = ensureIndices(es); err != nil {
		return nil, err
	}
	return &ESCatalog{es: es}, nil
}

const recordMapping = `
{
	"mappings" : {
	  "properties": {
		"Seq": {"type": "integer"},
		"ID": {"type": "keyword"},
		"Title": {"type": "text"},
		"Company": {"type": "text"},
		"SalaryFrom": {"type": "long"},
		"URL": {"type": "keyword"},
		"Employment": {"type": "keyword"},
		"Requirement": {"type": "text"},
		"TaggedSkills": {"type": "text"}
	  }
	}
}`

const viewMapping = `
{
	"mappings" : {
	  "properties": {
		"PublishedAt": {"type": "date"},
		"EmploymentTypes": {"type": "keyword"},
		"TopSkills": {"type": "object", "enabled": false}
	  }
	}
}`

func ensureIndices(es *elasticsearch.Client) error {
	if err := ensureIndex(es, recordIndex, recordMapping); err != nil {
		return err
	}
	return ensureIndex(es, viewIndex, viewMapping)
}

func ensureIndex(es *elasticsearch.Client, name, mapping string) error {
	res, err := es.Indices.Create(name, es.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return xerrors.Errorf("create index %s: %w", name, err)
	}
	defer func() { _ = res.Body.Close() }()
	if !res.IsError() {
		return nil
	}

	var esErr esErrorRes
	if err := json.NewDecoder(res.Body).Decode(&esErr); err != nil {
		return err
	}
	if esErr.Err.Type == "resource_already_exists_exception" {
		return nil
	}
	return xerrors.Errorf("create index %s: %w", name, esErr)
}

// Publish recreates the record index, bulk loads records and stores the
// ranking and employment types as the current view.
func (c *ESCatalog) Publish(ctx context.Context, records []vacancy.Record, ranked vacancy.RankedSkillList) error {
	res, err := c.es.Indices.Delete([]string{recordIndex},
		c.es.Indices.Delete.WithContext(ctx),
		c.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return xerrors.Errorf("publish: %w", err)
	}
	if err = unmarshalResponse(res, nil); err != nil {
		return xerrors.Errorf("publish: %w", err)
	}
	if err = ensureIndex(c.es, recordIndex, recordMapping); err != nil {
		return xerrors.Errorf("publish: %w", err)
	}

	if len(records) != 0 {
		if err = c.bulkIndex(ctx, records); err != nil {
			return xerrors.Errorf("publish: %w", err)
		}
	}

	view := esView{
		PublishedAt:     time.Now().UTC(),
		EmploymentTypes: catalog.EmploymentTypes(records),
	}
	for _, sc := range ranked {
		view.TopSkills = append(view.TopSkills, esSkillCount{Skill: sc.Skill, Count: sc.Count})
	}

	var buf bytes.Buffer
	if err = json.NewEncoder(&buf).Encode(view); err != nil {
		return xerrors.Errorf("publish: %w", err)
	}
	res, err = c.es.Index(viewIndex, &buf,
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(viewDocID),
		c.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return xerrors.Errorf("publish: %w", err)
	}
	if err = unmarshalResponse(res, nil); err != nil {
		return xerrors.Errorf("publish: %w", err)
	}
	return nil
}

func (c *ESCatalog) bulkIndex(ctx context.Context, records []vacancy.Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, r := range records {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_id": r.ID},
		}
		if err := enc.Encode(action); err != nil {
			return err
		}
		if err := enc.Encode(makeESDoc(i, r)); err != nil {
			return err
		}
	}

	res, err := c.es.Bulk(&buf,
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(recordIndex),
		c.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return err
	}

	var bulkRes esBulkRes
	if err = unmarshalResponse(res, &bulkRes); err != nil {
		return err
	}
	if !bulkRes.Errors {
		return nil
	}
	for _, item := range bulkRes.Items {
		for _, op := range item {
			if op.Error != nil {
				return xerrors.Errorf("bulk index: %w", *op.Error)
			}
		}
	}
	return xerrors.New("bulk index: unknown error")
}

// Records pages through the matching documents sorted by fetch order.
func (c *ESCatalog) Records(f catalog.Filter) ([]vacancy.Record, error) {
	var q esQuery
	q.Sort = []map[string]string{{"Seq": "asc"}}
	q.Size = batchSize
	if text := strings.TrimSpace(f.Text); text != "" {
		q.Query.Bool.Must = append(q.Query.Bool.Must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"type":   "best_fields",
				"fields": []string{"Title", "Company", "Requirement", "TaggedSkills"},
			},
		})
	}
	if f.Employment != "" {
		q.Query.Bool.Filter = append(q.Query.Bool.Filter, map[string]interface{}{
			"term": map[string]interface{}{"Employment": f.Employment},
		})
	}

	var out []vacancy.Record
	for {
		res, err := doSearch(c.es, &q)
		if err != nil {
			return nil, xerrors.Errorf("records: %w", err)
		}
		var esRes esSearchRes
		if err = unmarshalResponse(res, &esRes); err != nil {
			return nil, xerrors.Errorf("records: %w", err)
		}
		for _, h := range esRes.Hits.HitList {
			out = append(out, mapESDoc(h.DocSource))
		}
		if len(esRes.Hits.HitList) < batchSize || len(out) >= esRes.Hits.Total.Count {
			return out, nil
		}
		q.From += batchSize
	}
}

func (c *ESCatalog) EmploymentTypes() ([]string, error) {
	view, err := c.view()
	if err != nil {
		return nil, xerrors.Errorf("employment types: %w", err)
	}
	return view.EmploymentTypes, nil
}

func (c *ESCatalog) TopSkills() (vacancy.RankedSkillList, error) {
	view, err := c.view()
	if err != nil {
		return nil, xerrors.Errorf("top skills: %w", err)
	}
	var ranked vacancy.RankedSkillList
	for _, sc := range view.TopSkills {
		ranked = append(ranked, vacancy.SkillCount{Skill: sc.Skill, Count: sc.Count})
	}
	return ranked, nil
}

func (c *ESCatalog) URL(id string) (string, error) {
	res, err := c.es.GetSource(recordIndex, id)
	if err != nil {
		return "", xerrors.Errorf("url %q: %w", id, err)
	}
	if res.StatusCode == 404 {
		_ = res.Body.Close()
		return "", xerrors.Errorf("url %q: %w", id, catalog.ErrNotFound)
	}

	var doc esDoc
	if err = unmarshalResponse(res, &doc); err != nil {
		return "", xerrors.Errorf("url %q: %w", id, err)
	}
	return doc.URL, nil
}

func (c *ESCatalog) Close() error { return nil }

// view returns the stored view document, or an empty one when nothing has
// been published yet.
func (c *ESCatalog) view() (esView, error) {
	var view esView
	res, err := c.es.GetSource(viewIndex, viewDocID)
	if err != nil {
		return view, err
	}
	if res.StatusCode == 404 {
		_ = res.Body.Close()
		return view, nil
	}
	err = unmarshalResponse(res, &view)
	return view, err
}

func doSearch(es *elasticsearch.Client, query *esQuery) (*esapi.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, xerrors.Errorf("search: %w", err)
	}

	return es.Search(
		es.Search.WithContext(context.Background()),
		es.Search.WithIndex(recordIndex),
		es.Search.WithBody(&buf),
	)
}

func makeESDoc(seq int, r vacancy.Record) esDoc {
	return esDoc{
		Seq:          seq,
		ID:           r.ID,
		Title:        r.Title,
		Company:      r.EmployerName,
		SalaryFrom:   r.SalaryFrom,
		URL:          r.URL,
		Employment:   r.EmploymentType,
		Requirement:  r.RequirementText,
		TaggedSkills: r.TaggedSkills,
	}
}

// unmarshalResponse decodes a successful response body into to, skipping the
// body when to is nil, and converts error responses into esErrorRes values.
func unmarshalResponse(res *esapi.Response, to interface{}) error {
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var esErr esErrorRes
		if err := json.NewDecoder(res.Body).Decode(&esErr); err != nil {
			return err
		}
		return esErr
	}
	if to == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(to)
}

func mapESDoc(doc esDoc) vacancy.Record {
	return vacancy.Record{
		ID:              doc.ID,
		Title:           doc.Title,
		EmployerName:    doc.Company,
		SalaryFrom:      doc.SalaryFrom,
		URL:             doc.URL,
		EmploymentType:  doc.Employment,
		RequirementText: doc.Requirement,
		TaggedSkills:    doc.TaggedSkills,
	}
}
