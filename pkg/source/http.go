package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// HTTP pages through a hosted record-table REST API. Each collection is
// a table under BaseURL; responses look like
//
//	{"records": [{"id": "rec1", "fields": {...}}], "offset": "itr..."}
//
// and an absent offset marks the last page.
type HTTP struct {
	BaseURL  string
	Token    string
	PageSize int
	// View, when set, restricts each collection to a saved view.
	View   string
	Client *http.Client
}

// NewHTTP returns a client with a bounded request timeout.
func NewHTTP(baseURL, token string) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type recordPage struct {
	Records []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
	Offset string `json:"offset"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Collection string
	Status     int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Collection, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Collection, e.Status, e.Body)
}

// FetchPage implements fetch.PageSource.
func (a *HTTP) FetchPage(ctx context.Context, collection, cursor string) (fetch.Page, error) {
	u, err := url.Parse(a.BaseURL + "/" + url.PathEscape(collection))
	if err != nil {
		return fetch.Page{}, fmt.Errorf("bad base url: %w", err)
	}
	q := u.Query()
	size := a.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	q.Set("pageSize", strconv.Itoa(size))
	if cursor != "" {
		q.Set("offset", cursor)
	}
	if a.View != "" {
		q.Set("view", a.View)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fetch.Page{}, err
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	req.Header.Set("Accept", "application/json")

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	debug.Log("source/http: GET %s", u.Redacted())
	resp, err := client.Do(req)
	if err != nil {
		return fetch.Page{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fetch.Page{}, fmt.Errorf("reading %s response: %w", collection, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fetch.Page{}, &StatusError{Collection: collection, Status: resp.StatusCode, Body: snippet}
	}

	var rp recordPage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rp); err != nil {
		return fetch.Page{}, fmt.Errorf("decoding %s page: %w", collection, err)
	}

	page := fetch.Page{Rows: make([]model.Record, 0, len(rp.Records)), Next: rp.Offset}
	for _, r := range rp.Records {
		fields := r.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		page.Rows = append(page.Rows, model.Record{ID: r.ID, Fields: fields})
	}
	return page, nil
}
