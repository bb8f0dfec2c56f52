// Package cache persists generated summaries keyed by (unit id, content
// fingerprint, config fingerprint). Any key component changing forces a miss,
// which is what makes repeated runs over unchanged input free.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"deeprepo/internal/shared/observability"
)

const driverName = "sqlite"

// Entry is one persisted summary row.
type Entry struct {
	UnitID      string
	ContentFP   string
	ConfigFP    string
	Headline    string
	Body        string
	Strategy    string
	CreatedAtUTC time.Time
}

type key struct {
	unitID    string
	contentFP string
	configFP  string
}

// Store is safe for concurrent use. Reads across distinct keys never block
// each other; writes serialize on the single sqlite connection, which also
// gives last-writer-wins semantics for same-key races.
type Store struct {
	path string
	db   *sql.DB
	mem  *lru.Cache[key, Entry]

	writeMu sync.Mutex
}

// Open creates or opens the summary cache at path. The parent directory is
// created on demand.
func Open(path string, memoryEntries int) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema %q: %w", cleanPath, err)
	}

	if memoryEntries <= 0 {
		memoryEntries = 1024
	}
	mem, err := lru.New[key, Entry](memoryEntries)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{path: cleanPath, db: db, mem: mem}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached summary for the exact key tuple, or ok=false.
// A nil store always misses, so a degraded cache never fails the run.
func (s *Store) Get(unitID, contentFP, configFP string) (Entry, bool) {
	if s == nil || s.db == nil {
		observability.CacheMisses.Inc()
		return Entry{}, false
	}

	k := key{unitID: unitID, contentFP: contentFP, configFP: configFP}
	if entry, ok := s.mem.Get(k); ok {
		observability.CacheHits.Inc()
		return entry, true
	}

	row := s.db.QueryRow(
		`SELECT headline, body, strategy, created_at_utc FROM summaries
		 WHERE unit_id = ? AND content_fp = ? AND config_fp = ?`,
		unitID, contentFP, configFP,
	)

	var entry Entry
	var createdAt string
	if err := row.Scan(&entry.Headline, &entry.Body, &entry.Strategy, &createdAt); err != nil {
		// ErrNoRows and read failures both degrade to a miss; the
		// orchestrator simply regenerates the summary.
		observability.CacheMisses.Inc()
		return Entry{}, false
	}

	entry.UnitID = unitID
	entry.ContentFP = contentFP
	entry.ConfigFP = configFP
	if ts, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		entry.CreatedAtUTC = ts
	}

	s.mem.Add(k, entry)
	observability.CacheHits.Inc()
	return entry, true
}

// Put upserts one summary row. Only successful summarizations reach this
// point, so a row is never partially written from a reader's perspective.
func (s *Store) Put(entry Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	if entry.CreatedAtUTC.IsZero() {
		entry.CreatedAtUTC = time.Now().UTC()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO summaries (unit_id, content_fp, config_fp, headline, body, strategy, created_at_utc)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(unit_id, content_fp, config_fp) DO UPDATE SET
		   headline = excluded.headline,
		   body = excluded.body,
		   strategy = excluded.strategy,
		   created_at_utc = excluded.created_at_utc`,
		entry.UnitID, entry.ContentFP, entry.ConfigFP,
		entry.Headline, entry.Body, entry.Strategy,
		entry.CreatedAtUTC.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write cache entry %q: %w", entry.UnitID, err)
	}

	s.mem.Add(key{unitID: entry.UnitID, contentFP: entry.ContentFP, configFP: entry.ConfigFP}, entry)
	return nil
}

// Len reports the number of persisted rows. Used by diagnostics output.
func (s *Store) Len() (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM summaries`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
