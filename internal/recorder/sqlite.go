package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"MarketDash/internal/analysis"
	"MarketDash/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers (CLI, dashboards) query while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quote_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			currency     TEXT NOT NULL,
			asset_id     TEXT NOT NULL,
			symbol       TEXT,
			name         TEXT,
			price        REAL,
			change_24h   REAL,
			market_cap   REAL,
			volume_24h   REAL,
			market_rank  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_asset_ts ON quote_snapshots(asset_id, currency, timestamp)`,

		`CREATE TABLE IF NOT EXISTS news_items (
			id           TEXT PRIMARY KEY,
			published_at INTEGER NOT NULL,
			recorded_at  INTEGER NOT NULL,
			title        TEXT,
			description  TEXT,
			source       TEXT,
			url          TEXT,
			categories   TEXT,
			thumbnail    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_published ON news_items(published_at)`,

		`CREATE TABLE IF NOT EXISTS analyses (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			type         TEXT,
			symbol       TEXT,
			source       TEXT,
			text         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordQuotes(snap *QuoteSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := snap.TakenAt
	if ts.IsZero() {
		ts = time.Now()
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO quote_snapshots
		(timestamp, kind, currency, asset_id, symbol, name, price, change_24h, market_cap, volume_24h, market_rank)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, q := range snap.Quotes {
		if _, err := stmt.Exec(ts.Unix(), string(snap.Kind), string(snap.Currency),
			q.ID, q.Symbol, q.Name, q.Price, q.Change24h, q.MarketCap, q.Volume24h, q.Rank); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert quote %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// RecordNews stores items, ignoring ids already recorded.
func (r *SQLiteRecorder) RecordNews(items []model.NewsItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	for _, n := range items {
		if _, err := r.db.Exec(`INSERT OR IGNORE INTO news_items
			(id, published_at, recorded_at, title, description, source, url, categories, thumbnail)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			n.ID, n.PublishedAt.Unix(), now, n.Title, n.Description, n.Source, n.URL,
			strings.Join(n.Categories, "|"), n.Thumbnail,
		); err != nil {
			return fmt.Errorf("insert news %s: %w", n.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(res *analysis.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO analyses (timestamp, type, symbol, source, text) VALUES (?,?,?,?,?)`,
		res.GeneratedAt.Unix(), string(res.Type), res.Symbol, res.Source, res.Text,
	)
	return err
}

func (r *SQLiteRecorder) PriceHistory(id string, currency model.Currency, since time.Time) ([]model.Point, error) {
	rows, err := r.db.Query(`SELECT timestamp, price FROM quote_snapshots
		WHERE asset_id = ? AND currency = ? AND timestamp >= ?
		ORDER BY timestamp ASC`, id, string(currency), since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	points := []model.Point{}
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		points = append(points, model.Point{Time: time.Unix(ts, 0), Price: price})
	}
	return points, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
