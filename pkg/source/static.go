// Package source provides page sources for the remote collections: an
// in-memory source, SQL tables (sqlite and postgres), a record-table HTTP
// API, and PostgREST.
package source

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// Static serves fixed pages from memory. Cursors are page indexes.
type Static struct {
	// Pages holds the pages of each collection in order.
	Pages map[string][][]model.Record
	// FailAt makes the given page index of a collection return Err.
	FailAt map[string]int
	Err    error
	// BeforePage, when set, runs before each page is served. Tests use it to
	// force interleavings between collections.
	BeforePage func(collection string, page int)

	mu    sync.Mutex
	calls map[string]int
}

// NewStatic builds a Static source from per-collection pages.
func NewStatic(pages map[string][][]model.Record) *Static {
	return &Static{Pages: pages}
}

// FetchPage implements fetch.PageSource.
func (s *Static) FetchPage(ctx context.Context, collection, cursor string) (fetch.Page, error) {
	if err := ctx.Err(); err != nil {
		return fetch.Page{}, err
	}
	idx := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return fetch.Page{}, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
		idx = n
	}

	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[collection]++
	s.mu.Unlock()

	if s.BeforePage != nil {
		s.BeforePage(collection, idx)
	}
	if at, ok := s.FailAt[collection]; ok && at == idx {
		err := s.Err
		if err == nil {
			err = fmt.Errorf("page %d of %s failed", idx, collection)
		}
		return fetch.Page{}, err
	}

	pages, ok := s.Pages[collection]
	if !ok {
		return fetch.Page{}, fmt.Errorf("unknown collection %q", collection)
	}
	if idx >= len(pages) {
		return fetch.Page{}, nil
	}
	page := fetch.Page{Rows: pages[idx]}
	if idx+1 < len(pages) {
		page.Next = strconv.Itoa(idx + 1)
	}
	return page, nil
}

// Calls returns how many pages of collection were requested.
func (s *Static) Calls(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[collection]
}
