// Package queries serves the canned, read-only SQL query set from a directory.
package queries

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ridesight/logger"
)

var ErrAssetNotFound = errors.New("query asset not found")

// Query is one canned query file.
type Query struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Catalog lists the .sql files of one directory. The listing is cached
// until Refresh or a filesystem event from Watch invalidates it.
type Catalog struct {
	dir string
	log *zap.Logger

	mu      sync.RWMutex
	queries []Query
	loaded  bool
}

// NewCatalog returns a catalog over dir.
func NewCatalog(dir string, log *zap.Logger) *Catalog {
	return &Catalog{dir: dir, log: logger.OrNop(log)}
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// List returns the queries sorted by filename.
func (c *Catalog) List() ([]Query, error) {
	c.mu.RLock()
	if c.loaded {
		out := append([]Query(nil), c.queries...)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	if err := c.Refresh(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Query(nil), c.queries...), nil
}

// Refresh re-reads the directory listing.
func (c *Catalog) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, c.dir)
		}
		return err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	queries := make([]Query, len(files))
	for i, f := range files {
		queries[i] = Query{Name: DisplayName(f), File: f}
	}

	c.mu.Lock()
	c.queries = queries
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Lookup finds a query by filename or display name.
func (c *Catalog) Lookup(key string) (Query, error) {
	list, err := c.List()
	if err != nil {
		return Query{}, err
	}
	for _, q := range list {
		if q.File == key || q.Name == key {
			return q, nil
		}
	}
	return Query{}, fmt.Errorf("%w: %s", ErrAssetNotFound, key)
}

// Text reads the SQL of q.
func (c *Catalog) Text(q Query) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, filepath.Base(q.File)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrAssetNotFound, q.File)
		}
		return "", err
	}
	return string(data), nil
}

// Watch refreshes the listing whenever a file is created, removed or
// renamed in the directory. It blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := c.Refresh(); err != nil {
				c.log.Warn("query catalog refresh failed", zap.Error(err))
				continue
			}
			c.log.Debug("query catalog refreshed", zap.String("event", event.String()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("query catalog watcher error", zap.Error(err))
		}
	}
}

// DisplayName derives the label shown for a query file: the prefix up to the
// first underscore and the .sql extension are dropped, the remaining
// underscores become spaces and the result is title-cased.
// "01_top_5_customers.sql" becomes "Top 5 Customers".
func DisplayName(file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), ".sql")
	if _, rest, ok := strings.Cut(stem, "_"); ok && rest != "" {
		stem = rest
	}
	return cases.Title(language.English).String(strings.ReplaceAll(stem, "_", " "))
}
