package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ridesight/monitoring"
)

var (
	ErrNotInitialized = errors.New("database not initialized")
	ErrNotReadOnly    = errors.New("only SELECT or WITH statements are allowed")
)

// Config selects the driver and connection for the shared database.
type Config struct {
	Driver         string `yaml:"driver"` // sqlite3 or postgres
	DSN            string `yaml:"dsn"`
	EnableWAL      bool   `yaml:"enable_wal"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	QueryCacheSize int    `yaml:"query_cache_size"`
}

// QueryError carries the failing query text along with the driver error.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Result is a tabular query result. Results may be shared between callers
// through the memo and must not be modified.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

var (
	mu          sync.RWMutex
	database    *sql.DB
	driverName  string
	resultCache *lru.Cache[string, *Result]
)

// InitDB opens the process-wide connection. Calling it again replaces and
// closes the previous connection.
func InitDB(cfg Config) error {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := cfg.DSN
	if driver == "sqlite3" && cfg.EnableWAL && !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open database failed: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen)
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("ping database failed: %w", err)
	}

	size := cfg.QueryCacheSize
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, *Result](size)
	if err != nil {
		conn.Close()
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if database != nil {
		database.Close()
	}
	database = conn
	driverName = driver
	resultCache = cache
	return nil
}

// Close closes the shared connection.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	resultCache = nil
	return err
}

// RunQuery executes a read-only query and returns its rows. Successful
// results are memoized by query text.
func RunQuery(ctx context.Context, query string) (*Result, error) {
	mu.RLock()
	conn, cache := database, resultCache
	mu.RUnlock()
	if conn == nil {
		return nil, ErrNotInitialized
	}

	if !isReadOnly(query) {
		monitoring.ObserveQuery("error")
		return nil, &QueryError{Query: query, Err: ErrNotReadOnly}
	}

	if res, ok := cache.Get(query); ok {
		monitoring.ObserveQuery("cached")
		return res, nil
	}

	res, err := runQuery(ctx, conn, query)
	if err != nil {
		monitoring.ObserveQuery("error")
		return nil, &QueryError{Query: query, Err: err}
	}
	cache.Add(query, res)
	monitoring.ObserveQuery("ok")
	return res, nil
}

func runQuery(ctx context.Context, conn *sql.DB, query string) (*Result, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// isReadOnly accepts a single SELECT or WITH statement. Text after a ';'
// other than comments makes it a batch, which is rejected.
func isReadOnly(query string) bool {
	stmts, ok := statements(query)
	if !ok || len(stmts) != 1 {
		return false
	}
	words := strings.FieldsFunc(strings.ToUpper(stmts[0]), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) == 0 || (words[0] != "SELECT" && words[0] != "WITH") {
		return false
	}
	// WITH may lead into a data-modifying statement
	for _, w := range words {
		if writeKeywords[w] {
			return false
		}
	}
	return true
}

var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true,
	"MERGE": true, "DROP": true, "ALTER": true, "CREATE": true,
}

// statements splits query on ';' with comments removed and string literals
// blanked. ok is false for an unterminated literal or block comment.
func statements(query string) (stmts []string, ok bool) {
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				i = len(query)
				continue
			}
			i += end
			cur.WriteByte(' ')
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return nil, false
			}
			i += end + 3
			cur.WriteByte(' ')
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(query[i+1:], c)
			if end < 0 {
				return nil, false
			}
			i += end + 1
			cur.WriteString("''")
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return stmts, true
}
