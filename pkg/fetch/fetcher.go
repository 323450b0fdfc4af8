// Package fetch pulls remote collections page by page and reports each
// collection's completion to a readiness barrier.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/metrics"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/readiness"
)

// ErrCursorLoop is returned when a source hands back the cursor it was just
// asked for, which would otherwise page forever.
var ErrCursorLoop = errors.New("page source returned the same cursor twice")

// Page is one batch of rows. An empty Next means the collection is exhausted.
type Page struct {
	Rows []model.Record
	Next string
}

// PageSource is the remote tabular source. The first page of a collection is
// requested with an empty cursor.
type PageSource interface {
	FetchPage(ctx context.Context, collection, cursor string) (Page, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, collection, cursor string) (Page, error)

// FetchPage calls f.
func (f PageSourceFunc) FetchPage(ctx context.Context, collection, cursor string) (Page, error) {
	return f(ctx, collection, cursor)
}

// Fetcher requests pages sequentially and reports to Barrier.
type Fetcher struct {
	Source  PageSource
	Barrier *readiness.Barrier
}

// Fetch requests pages of collection until the source signals the end,
// handing each page's rows to handle in arrival order. On success the
// barrier task is marked done. On failure no further pages are requested,
// the failure is recorded on the barrier and returned; the task is never
// marked done.
func (f *Fetcher) Fetch(ctx context.Context, collection, task string, handle func([]model.Record)) error {
	cursor := ""
	pages := 0
	rows := 0
	for {
		page, err := f.fetchPage(ctx, collection, cursor)
		if err == nil && page.Next != "" && page.Next == cursor {
			err = fmt.Errorf("%w: %q", ErrCursorLoop, cursor)
		}
		if err != nil {
			err = fmt.Errorf("fetching %s page %d: %w", collection, pages+1, err)
			if f.Barrier != nil {
				_ = f.Barrier.Fail(task, err)
			}
			return err
		}

		pages++
		rows += len(page.Rows)
		if len(page.Rows) > 0 {
			handle(page.Rows)
		}
		debug.Log("fetch: %s page %d (%d rows, next=%q)", collection, pages, len(page.Rows), page.Next)

		if page.Next == "" {
			break
		}
		cursor = page.Next
	}

	debug.Log("fetch: %s complete (%d pages, %d rows)", collection, pages, rows)
	if f.Barrier == nil {
		return nil
	}
	return f.Barrier.MarkDone(task)
}

func (f *Fetcher) fetchPage(ctx context.Context, collection, cursor string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	start := time.Now()
	page, err := f.Source.FetchPage(ctx, collection, cursor)
	metrics.PageFetch.Record(time.Since(start))
	return page, err
}
