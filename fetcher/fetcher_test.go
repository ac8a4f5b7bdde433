package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/fetcher/mocks"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/golang/mock/gomock"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(FetcherTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type reply struct {
	status int
	body   string
}

type FetcherTestSuite struct {
	srv *httptest.Server
	clk *fakeClock

	mu       sync.Mutex
	replies  map[int]reply
	requests []*http.Request
}

func (s *FetcherTestSuite) SetUpTest(c *gc.C) {
	s.replies = make(map[int]reply)
	s.requests = nil
	s.clk = new(fakeClock)
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
}

func (s *FetcherTestSuite) TearDownTest(c *gc.C) {
	s.srv.Close()
}

func (s *FetcherTestSuite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Clone(context.Background()))

	idx, _ := strconv.Atoi(r.URL.Query().Get("page"))
	rep, ok := s.replies[idx]
	if !ok {
		http.Error(w, "no such page", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

func (s *FetcherTestSuite) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = make(map[int]reply)
	s.requests = nil
	s.clk.delays = nil
}

func (s *FetcherTestSuite) setReply(page int, rep reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[page] = rep
}

func (s *FetcherTestSuite) recorded() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

func (s *FetcherTestSuite) newFetcher(c *gc.C) *Fetcher {
	f, err := NewFetcher(Config{
		BaseURL: s.srv.URL + "/vacancies",
		Clock:   s.clk,
	})
	c.Assert(err, gc.IsNil)
	return f
}

func (s *FetcherTestSuite) TestZeroPagesIssuesSingleRequest(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 0)})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{Text: "go"})
	c.Assert(err, gc.IsNil)
	c.Assert(records, gc.HasLen, 0)
	c.Assert(s.recorded(), gc.HasLen, 1)
	c.Assert(s.clk.delays, gc.HasLen, 0)
}

func (s *FetcherTestSuite) TestRequestCountMatchesPageCount(c *gc.C) {
	for pages := 1; pages <= 4; pages++ {
		s.reset()
		for i := 0; i < pages; i++ {
			s.setReply(i, reply{http.StatusOK, pageBody(c, pages, "p"+strconv.Itoa(i))})
		}

		records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
		c.Assert(err, gc.IsNil)
		c.Assert(records, gc.HasLen, pages, gc.Commentf("pages=%d", pages))
		c.Assert(s.recorded(), gc.HasLen, pages, gc.Commentf("pages=%d", pages))
		c.Assert(s.clk.delays, gc.HasLen, pages-1, gc.Commentf("pages=%d", pages))
		for _, d := range s.clk.delays {
			c.Assert(d, gc.Equals, DefaultPageDelay)
		}
		last := s.recorded()[len(s.recorded())-1].URL.Query().Get("page")
		c.Assert(last, gc.Equals, strconv.Itoa(pages-1))
	}
}

func (s *FetcherTestSuite) TestRecordsKeepServiceOrder(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 2, "30", "10")})
	s.setReply(1, reply{http.StatusOK, pageBody(c, 2, "20", "5")})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(records), gc.DeepEquals, []string{"30", "10", "20", "5"})
}

func (s *FetcherTestSuite) TestDuplicateIDsAcrossPagesAreDropped(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 2, "1", "2")})
	s.setReply(1, reply{http.StatusOK, pageBody(c, 2, "2", "3")})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(err, gc.IsNil)
	c.Assert(ids(records), gc.DeepEquals, []string{"1", "2", "3"})
}

func (s *FetcherTestSuite) TestServerErrorReturnsPartialRecords(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 3, "a", "b")})
	s.setReply(1, reply{http.StatusOK, pageBody(c, 3, "c")})
	s.setReply(2, reply{http.StatusInternalServerError, "boom"})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(IsTransient(err), gc.Equals, true)
	c.Assert(IsFatal(err), gc.Equals, false)
	c.Assert(ids(records), gc.DeepEquals, []string{"a", "b", "c"})
	c.Assert(s.clk.delays, gc.HasLen, 2)

	var tErr *TransientFetchError
	c.Assert(xerrors.As(err, &tErr), gc.Equals, true)
	c.Assert(tErr.Page, gc.Equals, 2)
	c.Assert(tErr.StatusCode, gc.Equals, http.StatusInternalServerError)
}

func (s *FetcherTestSuite) TestRateLimitIsTransient(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 2, "a")})
	s.setReply(1, reply{http.StatusTooManyRequests, ""})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(IsTransient(err), gc.Equals, true)
	c.Assert(ids(records), gc.DeepEquals, []string{"a"})
}

func (s *FetcherTestSuite) TestClientErrorIsFatal(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 3, "a")})
	s.setReply(1, reply{http.StatusBadRequest, `{"errors":[{"type":"bad_argument"}]}`})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(IsFatal(err), gc.Equals, true)
	c.Assert(IsTransient(err), gc.Equals, false)
	c.Assert(records, gc.IsNil)
	c.Assert(err, gc.ErrorMatches, `fatal fetch error on page 1 \(status 400\): .*bad_argument.*`)
}

func (s *FetcherTestSuite) TestMalformedBodyIsTransient(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, `{"items": [`})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(IsTransient(err), gc.Equals, true)
	c.Assert(records, gc.HasLen, 0)
}

func (s *FetcherTestSuite) TestRequestParameters(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, pageBody(c, 1)})

	f, err := NewFetcher(Config{
		BaseURL:   s.srv.URL + "/vacancies",
		UserAgent: "skills-report/1.0",
		Clock:     s.clk,
	})
	c.Assert(err, gc.IsNil)
	_, err = f.FetchAll(context.TODO(), vacancy.Query{Text: "Python OR Java", Area: "1"})
	c.Assert(err, gc.IsNil)

	c.Assert(s.recorded(), gc.HasLen, 1)
	req := s.recorded()[0]
	c.Assert(req.Method, gc.Equals, http.MethodGet)
	c.Assert(req.URL.Path, gc.Equals, "/vacancies")
	c.Assert(req.Header.Get("User-Agent"), gc.Equals, "skills-report/1.0")
	c.Assert(req.URL.Query(), gc.DeepEquals, url.Values{
		"text":     {"Python OR Java"},
		"area":     {"1"},
		"per_page": {"100"},
		"page":     {"0"},
	})
}

func (s *FetcherTestSuite) TestPerPageIsClamped(c *gc.C) {
	specs := []struct {
		in  int
		exp string
	}{
		{in: 0, exp: "100"},
		{in: -5, exp: "100"},
		{in: 500, exp: "100"},
		{in: 20, exp: "20"},
	}
	for _, spec := range specs {
		s.reset()
		s.setReply(0, reply{http.StatusOK, pageBody(c, 1)})
		_, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{PerPage: spec.in})
		c.Assert(err, gc.IsNil)
		c.Assert(s.recorded()[0].URL.Query().Get("per_page"), gc.Equals, spec.exp, gc.Commentf("per_page=%d", spec.in))
	}
}

func (s *FetcherTestSuite) TestOptionalBlocks(c *gc.C) {
	s.setReply(0, reply{http.StatusOK, `{
		"pages": 1,
		"items": [
			{
				"id": "101",
				"name": "Разработчик Python",
				"alternate_url": "https://hh.ru/vacancy/101",
				"employer": {"id": "7", "name": "ООО Ромашка"},
				"salary": {"from": 150000, "to": null, "currency": "RUR"},
				"employment": {"id": "full", "name": "Полная занятость"},
				"snippet": {"requirement": "Опыт с <highlighttext>Python</highlighttext> &amp; SQL"},
				"key_skills": [{"name": "Django"}, {"name": ""}]
			},
			{
				"id": "102",
				"name": "Intern",
				"salary": {"from": null, "to": 50000},
				"employment": null,
				"snippet": {"requirement": null}
			},
			{"id": "103", "name": "Bare", "salary": null}
		]
	}`})

	records, err := s.newFetcher(c).FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(err, gc.IsNil)
	c.Assert(records, gc.DeepEquals, []vacancy.Record{
		{
			ID:              "101",
			Title:           "Разработчик Python",
			EmployerName:    "ООО Ромашка",
			SalaryFrom:      vacancy.IntPtr(150000),
			URL:             "https://hh.ru/vacancy/101",
			EmploymentType:  "Полная занятость",
			RequirementText: "Опыт с Python & SQL",
			TaggedSkills:    []string{"Django"},
		},
		{ID: "102", Title: "Intern", EmploymentType: vacancy.EmploymentUnspecified},
		{ID: "103", Title: "Bare", EmploymentType: vacancy.EmploymentUnspecified},
	})
}

func (s *FetcherTestSuite) TestTransportErrorIsTransient(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	client := mocks.NewMockHTTPClient(ctrl)
	client.EXPECT().Do(gomock.Any()).Return(nil, xerrors.New("connection reset by peer"))

	f, err := NewFetcher(Config{Client: client, Clock: s.clk})
	c.Assert(err, gc.IsNil)

	records, err := f.FetchAll(context.TODO(), vacancy.Query{})
	c.Assert(IsTransient(err), gc.Equals, true)
	c.Assert(err, gc.ErrorMatches, "transient fetch error on page 0: connection reset by peer")
	c.Assert(records, gc.HasLen, 0)
}

func (s *FetcherTestSuite) TestContextCheckedBetweenPages(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	client := mocks.NewMockHTTPClient(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		c.Assert(req.URL.Query().Get("page"), gc.Equals, "0")
		cancel()
		return okResponse(pageBody(c, 5, "first")), nil
	})

	f, err := NewFetcher(Config{Client: client, Clock: s.clk})
	c.Assert(err, gc.IsNil)

	records, err := f.FetchAll(ctx, vacancy.Query{})
	c.Assert(IsTransient(err), gc.Equals, true)
	c.Assert(xerrors.Is(err, context.Canceled), gc.Equals, true)
	c.Assert(ids(records), gc.DeepEquals, []string{"first"})
}

func (s *FetcherTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewFetcher(Config{PageDelay: -time.Second})
	c.Assert(err, gc.ErrorMatches, "(?s)fetcher config validation failed: .*page delay must not be negative.*")

	_, err = NewFetcher(Config{BaseURL: "http://[::1"})
	c.Assert(err, gc.ErrorMatches, "(?s).*invalid base URL.*")
}

type fakeClock struct {
	delays []time.Duration
}

func (fc *fakeClock) After(d time.Duration) <-chan time.Time {
	fc.delays = append(fc.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func pageBody(c *gc.C, pages int, ids ...string) string {
	type item struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		AlternateURL string `json:"alternate_url"`
	}
	items := make([]item, len(ids))
	for i, id := range ids {
		items[i] = item{ID: id, Name: "vacancy " + id, AlternateURL: "https://hh.ru/vacancy/" + id}
	}
	body, err := json.Marshal(map[string]interface{}{
		"items": items,
		"found": len(ids),
		"pages": pages,
	})
	c.Assert(err, gc.IsNil)
	return string(body)
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func ids(records []vacancy.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
