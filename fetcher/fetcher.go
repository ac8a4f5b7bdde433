/*
   Retrieves the complete paginated vacancy collection from the listing
   service.
*/

package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/ElizavetaSytenko/hh-vacancy-parser/fetcher HTTPClient

const (
	// DefaultBaseURL is the vacancy search endpoint of the listing service.
	DefaultBaseURL = "https://api.hh.ru/vacancies"

	// DefaultUserAgent identifies the client to the listing service.
	DefaultUserAgent = "api-test-agent"

	// DefaultPageDelay is the pause between two page requests.
	DefaultPageDelay = 500 * time.Millisecond

	// MaxPerPage is the largest page size accepted by the service.
	MaxPerPage = 100

	defaultTimeout = 30 * time.Second

	// errBodyLimit caps how much of an error response ends up in the error.
	errBodyLimit = 512
)

// HTTPClient is implemented by objects that can perform HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Clock is implemented by objects that can signal when a duration elapsed.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// Config encapsulates the settings for the Fetcher.
type Config struct {
	// BaseURL of the vacancy search endpoint.
	BaseURL string

	// UserAgent is sent with every request as the client identification.
	UserAgent string

	// PageDelay is applied between two page requests but never after the
	// last one.
	PageDelay time.Duration

	// Client performs the requests. Defaults to an http.Client with a
	// 30 second timeout.
	Client HTTPClient

	// Clock drives the inter-page delay. Defaults to the wall clock.
	Clock Clock

	Logger *logrus.Entry

	baseURL *url.URL
}

func (cfg *Config) validate() error {
	var err error
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if u, pErr := url.Parse(cfg.BaseURL); pErr != nil {
		err = multierror.Append(err, xerrors.Errorf("invalid base URL: %w", pErr))
	} else {
		cfg.baseURL = u
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.PageDelay < 0 {
		err = multierror.Append(err, xerrors.Errorf("page delay must not be negative"))
	} else if cfg.PageDelay == 0 {
		cfg.PageDelay = DefaultPageDelay
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Fetcher walks every page of a vacancy search.
type Fetcher struct {
	cfg Config
}

// NewFetcher returns a new Fetcher instance using the provided config.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("fetcher config validation failed: %w", err)
	}
	return &Fetcher{cfg: cfg}, nil
}

// FetchAll requests the pages of q in order, starting at page 0, until the
// page count reported by the service is exhausted. Records keep service
// order; a record whose ID was already returned by an earlier page is
// dropped.
//
// When a page request fails transiently FetchAll stops and returns the
// records collected so far together with a *TransientFetchError. A
// *FatalFetchError is returned without records.
//
// The context is checked between pages and bounds the whole fetch.
func (f *Fetcher) FetchAll(ctx context.Context, q vacancy.Query) ([]vacancy.Record, error) {
	var (
		records []vacancy.Record
		seen    = make(map[string]struct{})
		it      = f.pages(q)
	)
	for it.Next(ctx) {
		for _, r := range it.Records() {
			if _, dup := seen[r.ID]; dup {
				f.cfg.Logger.WithField("id", r.ID).Debug("skipping vacancy repeated across pages")
				continue
			}
			seen[r.ID] = struct{}{}
			records = append(records, r)
		}
	}

	if err := it.Error(); err != nil {
		if IsFatal(err) {
			return nil, err
		}
		f.cfg.Logger.WithFields(logrus.Fields{
			"collected": len(records),
			"err":       err,
		}).Warn("fetch stopped early")
		return records, err
	}
	return records, nil
}

func (f *Fetcher) pages(q vacancy.Query) *pageIterator {
	return &pageIterator{f: f, q: q}
}

// page is the decoded content of a single page response.
type page struct {
	records []vacancy.Record
	pages   int
}

func (f *Fetcher) fetchPage(ctx context.Context, q vacancy.Query, pageIdx int) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL(q, pageIdx), nil)
	if err != nil {
		return nil, &FatalFetchError{Page: pageIdx, Err: err}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := f.cfg.Client.Do(req)
	if err != nil {
		return nil, &TransientFetchError{Page: pageIdx, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, errBodyLimit))
		return nil, classifyStatus(pageIdx, res.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, &TransientFetchError{
			Page:       pageIdx,
			StatusCode: res.StatusCode,
			Err:        xerrors.Errorf("decode response: %w", err),
		}
	}

	records := make([]vacancy.Record, len(sr.Items))
	for i := range sr.Items {
		records[i] = sr.Items[i].toRecord()
	}
	return &page{records: records, pages: sr.Pages}, nil
}

func (f *Fetcher) pageURL(q vacancy.Query, pageIdx int) string {
	u := *f.cfg.baseURL
	params := u.Query()
	if q.Text != "" {
		params.Set("text", q.Text)
	}
	if q.Area != "" {
		params.Set("area", q.Area)
	}
	params.Set("per_page", strconv.Itoa(perPage(q.PerPage)))
	params.Set("page", strconv.Itoa(pageIdx))
	u.RawQuery = params.Encode()
	return u.String()
}

func perPage(n int) int {
	if n <= 0 || n > MaxPerPage {
		return MaxPerPage
	}
	return n
}
