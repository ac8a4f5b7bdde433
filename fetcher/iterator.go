package fetcher

import (
	"context"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/sirupsen/logrus"
)

// pageIterator yields the records of one page per call to Next. Waiting for
// the inter-page delay and checking the context both happen at the top of
// Next, before the following request is issued.
type pageIterator struct {
	f *Fetcher
	q vacancy.Query

	// next is the index of the page the following call to Next requests.
	next int
	done bool

	latched []vacancy.Record
	lastErr error
}

func (it *pageIterator) Next(ctx context.Context) bool {
	if it.done || it.lastErr != nil {
		return false
	}

	if it.next > 0 {
		select {
		case <-it.f.cfg.Clock.After(it.f.cfg.PageDelay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		it.lastErr = &TransientFetchError{Page: it.next, Err: err}
		return false
	}

	p, err := it.f.fetchPage(ctx, it.q, it.next)
	if err != nil {
		it.lastErr = err
		return false
	}

	it.f.cfg.Logger.WithFields(logrus.Fields{
		"page":  it.next,
		"pages": p.pages,
		"items": len(p.records),
	}).Debug("fetched page")

	it.latched = p.records
	if it.next >= p.pages-1 {
		it.done = true
	} else {
		it.next++
	}
	return true
}

func (it *pageIterator) Records() []vacancy.Record { return it.latched }

func (it *pageIterator) Error() error { return it.lastErr }
