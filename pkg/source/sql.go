package source

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// Dialects understood by SQL.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DefaultPageSize matches the page size of the hosted record-table API.
const DefaultPageSize = 100

// SQL reads collections from tables of a SQL database. Each table needs
// an id column; every other column becomes a record field. Text columns
// holding a JSON array (how record-table exports store link references) are
// decoded into lists. Cursors are row offsets.
type SQL struct {
	DB       *sql.DB
	Dialect  string
	PageSize int
	// IDColumn names the id column; defaults to "id".
	IDColumn string
	// OrderBy fixes the paging order; defaults to rowid on sqlite and the id
	// column on postgres.
	OrderBy string
}

// OpenSQL opens a database for dialect. SQLite files are opened read-only.
func OpenSQL(dialect, dsn string) (*SQL, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			dsn = fmt.Sprintf("file:%s?mode=ro", dsn)
		}
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}
	return &SQL{DB: db, Dialect: dialect}, nil
}

// Close releases the database handle.
func (s *SQL) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// FetchPage implements fetch.PageSource.
func (s *SQL) FetchPage(ctx context.Context, collection, cursor string) (fetch.Page, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return fetch.Page{}, fmt.Errorf("bad offset cursor %q", cursor)
		}
		offset = n
	}
	size := s.pageSize()

	query := s.pageQuery(collection)
	debug.Log("source/sql: %s offset=%d limit=%d", collection, offset, size)
	rows, err := s.DB.QueryContext(ctx, query, size, offset)
	if err != nil {
		return fetch.Page{}, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fetch.Page{}, err
	}
	idCol := s.idColumn()

	var out []model.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fetch.Page{}, fmt.Errorf("scanning %s: %w", collection, err)
		}

		rec := model.Record{Fields: make(map[string]any, len(cols))}
		for i, col := range cols {
			v := columnValue(vals[i])
			if col == idCol {
				if v != nil {
					rec.ID = fmt.Sprint(v)
				}
				continue
			}
			rec.Fields[col] = v
		}
		if rec.ID == "" {
			if !slices.Contains(cols, idCol) {
				return fetch.Page{}, fmt.Errorf("table %s has no %q column", collection, idCol)
			}
			return fetch.Page{}, fmt.Errorf("table %s: %w", collection, model.ErrEmptyNodeID)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return fetch.Page{}, err
	}

	page := fetch.Page{Rows: out}
	if len(out) == size {
		page.Next = strconv.Itoa(offset + size)
	}
	return page, nil
}

func (s *SQL) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return DefaultPageSize
}

func (s *SQL) idColumn() string {
	if s.IDColumn != "" {
		return s.IDColumn
	}
	return "id"
}

func (s *SQL) pageQuery(table string) string {
	order := s.OrderBy
	if order == "" {
		if s.Dialect == DialectPostgres {
			order = quoteIdent(s.idColumn())
		} else {
			order = "rowid"
		}
	} else {
		order = quoteIdent(order)
	}
	if s.Dialect == DialectPostgres {
		return fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT $1 OFFSET $2", quoteIdent(table), order)
	}
	return fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT ? OFFSET ?", quoteIdent(table), order)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnValue normalizes a scanned driver value into the shapes record
// fields use: strings, numbers, bools, lists and nil.
func columnValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return textValue(string(t))
	case string:
		return textValue(t)
	default:
		return t
	}
}

func textValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		var list []any
		if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
			return list
		}
	}
	return s
}
