package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/graphweave/pkg/model"
)

func TestStatic_PagesAndCursor(t *testing.T) {
	s := NewStatic(map[string][][]model.Record{
		"People": {{{ID: "a"}, {ID: "b"}}, {{ID: "c"}}},
	})
	ctx := context.Background()

	p, err := s.FetchPage(ctx, "People", "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Rows) != 2 || p.Next != "1" {
		t.Fatalf("unexpected first page %+v", p)
	}
	p, err = s.FetchPage(ctx, "People", p.Next)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Rows) != 1 || p.Next != "" {
		t.Fatalf("unexpected last page %+v", p)
	}
	if _, err := s.FetchPage(ctx, "Nope", ""); err == nil {
		t.Errorf("expected error for unknown collection")
	}
	if s.Calls("People") != 2 {
		t.Errorf("expected 2 calls, got %d", s.Calls("People"))
	}
}

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE "People" (id TEXT PRIMARY KEY, "Person" TEXT, "Position" TEXT)`,
		`CREATE TABLE "Relationships" (id TEXT PRIMARY KEY, source TEXT, target TEXT, value REAL)`,
	}
	for i := 0; i < 5; i++ {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO "People" VALUES ('rec%d', 'Person %d', 'Group %d')`, i, i, i%2))
	}
	stmts = append(stmts,
		`INSERT INTO "Relationships" VALUES ('rel0', '["rec0"]', '["rec1"]', 4)`,
		`INSERT INTO "Relationships" VALUES ('rel1', 'rec1', '["rec2"]', NULL)`,
	)
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path
}

func TestSQL_SQLitePaging(t *testing.T) {
	src, err := OpenSQL(DialectSQLite, seedSQLite(t))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer src.Close()
	src.PageSize = 2

	ctx := context.Background()
	var ids []string
	cursor := ""
	pages := 0
	for {
		p, err := src.FetchPage(ctx, "People", cursor)
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		pages++
		for _, r := range p.Rows {
			ids = append(ids, r.ID)
			if r.Fields["Person"] == nil {
				t.Errorf("row %s missing Person field", r.ID)
			}
		}
		if p.Next == "" {
			break
		}
		cursor = p.Next
	}
	if got := strings.Join(ids, ","); got != "rec0,rec1,rec2,rec3,rec4" {
		t.Errorf("unexpected row order %s", got)
	}
	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
}

func TestSQL_DecodesReferenceLists(t *testing.T) {
	src, err := OpenSQL(DialectSQLite, seedSQLite(t))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer src.Close()

	p, err := src.FetchPage(context.Background(), "Relationships", "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(p.Rows))
	}
	list, ok := p.Rows[0].Fields["source"].([]any)
	if !ok || len(list) != 1 || list[0] != "rec0" {
		t.Errorf("expected decoded list, got %#v", p.Rows[0].Fields["source"])
	}
	if p.Rows[1].Fields["source"] != "rec1" {
		t.Errorf("plain text should stay a string, got %#v", p.Rows[1].Fields["source"])
	}

	l, err := model.LinkFromRecord(p.Rows[0])
	if err != nil {
		t.Fatalf("LinkFromRecord: %v", err)
	}
	if l.Source != "rec0" || l.Target != "rec1" || l.Value == nil || *l.Value != 4 {
		t.Errorf("unexpected link %+v", l)
	}
}

func TestSQL_NullIDRejected(t *testing.T) {
	path := seedSQLite(t)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE "Orphans" (id TEXT, "Person" TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO "Orphans" VALUES (NULL, 'Nobody')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	src, err := OpenSQL(DialectSQLite, path)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer src.Close()

	_, err = src.FetchPage(context.Background(), "Orphans", "")
	if !errors.Is(err, model.ErrEmptyNodeID) {
		t.Fatalf("expected ErrEmptyNodeID for a NULL id, got %v", err)
	}
}

func TestOpenSQL_UnknownDialect(t *testing.T) {
	if _, err := OpenSQL("oracle", "x"); err == nil {
		t.Fatalf("expected error for unsupported dialect")
	}
}

func TestSQL_PostgresQueryShape(t *testing.T) {
	s := &SQL{Dialect: DialectPostgres}
	q := s.pageQuery(`we"ird`)
	want := `SELECT * FROM "we""ird" ORDER BY "id" LIMIT $1 OFFSET $2`
	if q != want {
		t.Errorf("got %s, want %s", q, want)
	}
}

func TestHTTP_Paging(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		if r.URL.Path != "/People" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("offset") {
		case "":
			fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{"Person":"Ann"}},{"id":"rec2","fields":{"Person":"Bo"}}],"offset":"itr1"}`)
		case "itr1":
			fmt.Fprint(w, `{"records":[{"id":"rec3","fields":{"Person":"Cy","Age":41}}]}`)
		default:
			http.Error(w, "bad offset", http.StatusUnprocessableEntity)
		}
	}))
	defer srv.Close()

	api := NewHTTP(srv.URL+"/", "secret")
	ctx := context.Background()

	p, err := api.FetchPage(ctx, "People", "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Rows) != 2 || p.Next != "itr1" {
		t.Fatalf("unexpected first page %+v", p)
	}
	p, err = api.FetchPage(ctx, "People", p.Next)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Rows) != 1 || p.Next != "" || p.Rows[0].ID != "rec3" {
		t.Fatalf("unexpected last page %+v", p)
	}
	if auth[0] != "Bearer secret" {
		t.Errorf("missing bearer token, got %q", auth[0])
	}
}

func TestHTTP_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "").FetchPage(context.Background(), "People", "")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
	if !strings.Contains(se.Error(), "rate limited") {
		t.Errorf("error should carry body snippet: %v", se)
	}
}

func TestPostgREST_Page(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1,"Person":"Ann","tags":"[\"x\"]"},{"id":2,"Person":"Bo"}]`)
	}))
	defer srv.Close()

	p, err := NewPostgREST(srv.URL, "public", "anon")
	if err != nil {
		t.Fatalf("NewPostgREST: %v", err)
	}
	p.PageSize = 2

	page, err := p.FetchPage(context.Background(), "People", "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if !strings.HasSuffix(path, "/People") {
		t.Errorf("unexpected request path %q", path)
	}
	if len(page.Rows) != 2 || page.Rows[0].ID != "1" || page.Next != "2" {
		t.Fatalf("unexpected page %+v", page)
	}
	if _, ok := page.Rows[0].Fields["id"]; ok {
		t.Errorf("id column should not be copied into fields")
	}
	if _, ok := page.Rows[0].Fields["tags"].([]any); !ok {
		t.Errorf("json text should decode to a list, got %#v", page.Rows[0].Fields["tags"])
	}
}
