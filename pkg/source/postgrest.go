package source

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/supabase-community/postgrest-go"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// PostgREST reads collections as tables exposed by a PostgREST endpoint
// (Supabase included), paging with Range over a stable ordering.
type PostgREST struct {
	client   *postgrest.Client
	PageSize int
	IDColumn string
	OrderBy  string
}

// NewPostgREST connects to url. apiKey, when set, is sent both as the apikey
// header and as a bearer token.
func NewPostgREST(url, schema, apiKey string) (*PostgREST, error) {
	headers := map[string]string{}
	if apiKey != "" {
		headers["apikey"] = apiKey
	}
	c := postgrest.NewClient(url, schema, headers)
	if c.ClientError != nil {
		return nil, fmt.Errorf("failed to create postgrest client: %w", c.ClientError)
	}
	if apiKey != "" {
		c = c.SetAuthToken(apiKey)
	}
	return &PostgREST{client: c}, nil
}

// FetchPage implements fetch.PageSource. The postgrest client has no context
// support, so cancellation is only checked between pages.
func (p *PostgREST) FetchPage(ctx context.Context, collection, cursor string) (fetch.Page, error) {
	if err := ctx.Err(); err != nil {
		return fetch.Page{}, err
	}
	from := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return fetch.Page{}, fmt.Errorf("bad offset cursor %q", cursor)
		}
		from = n
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	idCol := p.IDColumn
	if idCol == "" {
		idCol = "id"
	}
	order := p.OrderBy
	if order == "" {
		order = idCol
	}

	debug.Log("source/postgrest: %s range %d-%d", collection, from, from+size-1)
	body, _, err := p.client.From(collection).
		Select("*", "", false).
		Order(order, &postgrest.OrderOpts{Ascending: true}).
		Range(from, from+size-1, "").
		Execute()
	if err != nil {
		return fetch.Page{}, fmt.Errorf("querying %s: %w", collection, err)
	}

	var rows []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return fetch.Page{}, fmt.Errorf("decoding %s: %w", collection, err)
	}

	page := fetch.Page{Rows: make([]model.Record, 0, len(rows))}
	for _, row := range rows {
		id, ok := row[idCol]
		if !ok || id == nil {
			return fetch.Page{}, fmt.Errorf("row of %s has no %q column", collection, idCol)
		}
		delete(row, idCol)
		for k, v := range row {
			if s, ok := v.(string); ok {
				row[k] = textValue(s)
			}
		}
		page.Rows = append(page.Rows, model.Record{ID: fmt.Sprint(id), Fields: row})
	}
	if len(rows) == size {
		page.Next = strconv.Itoa(from + size)
	}
	return page, nil
}
