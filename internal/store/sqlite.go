package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/draftline/content-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Suited to local
// development and tests; the deployed pipeline runs on postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS authors (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	linkedin_urn TEXT NOT NULL DEFAULT '',
	sync_status  TEXT NOT NULL DEFAULT 'unsynced',
	style_prompt  TEXT,
	style_metrics TEXT,
	completed_at DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS content_items (
	id               TEXT PRIMARY KEY,
	author_id        TEXT NOT NULL REFERENCES authors(id),
	content          TEXT NOT NULL,
	hook             TEXT,
	embedding        TEXT,
	hook_category_id TEXT,
	topic_id         TEXT,
	audience_id      TEXT,
	needs_hook_extraction         BOOLEAN NOT NULL DEFAULT 1,
	needs_embedding               BOOLEAN NOT NULL DEFAULT 1,
	needs_hook_classification     BOOLEAN NOT NULL DEFAULT 1,
	needs_topic_classification    BOOLEAN NOT NULL DEFAULT 1,
	needs_audience_classification BOOLEAN NOT NULL DEFAULT 1,
	embedding_locked_at DATETIME,
	engagement       INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS labels (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS job_runs (
	id              TEXT PRIMARY KEY,
	worker          TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	started_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at     DATETIME,
	items_found     INTEGER NOT NULL DEFAULT 0,
	items_processed INTEGER NOT NULL DEFAULT 0,
	items_failed    INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ai_usage (
	id            TEXT PRIMARY KEY,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	operation     TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	success       BOOLEAN NOT NULL,
	cost_usd      REAL NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS worker_flags (
	worker  TEXT PRIMARY KEY,
	enabled BOOLEAN NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_items_author ON content_items(author_id);
CREATE INDEX IF NOT EXISTS idx_items_created ON content_items(created_at);
CREATE INDEX IF NOT EXISTS idx_authors_status ON authors(sync_status);
CREATE INDEX IF NOT EXISTS idx_labels_kind ON labels(kind);
CREATE INDEX IF NOT EXISTS idx_job_runs_started ON job_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_ai_usage_created ON ai_usage(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Items ---

func (s *SQLiteStore) SelectItemsNeedingStage(ctx context.Context, stage model.Stage, limit int) ([]model.ContentItem, error) {
	cols, err := columnsFor(stage)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM content_items WHERE %s AND %s IS NULL ORDER BY created_at ASC LIMIT ?`,
			itemColumns, cols.flag, cols.result),
		limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select items needing %s", stage)
	}
	defer rows.Close()

	return scanItemRows(rows)
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*model.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM content_items WHERE id = ?`, itemColumns),
		id,
	)
	item, err := scanItem(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("item not found: %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get item %s", id)
	}
	return item, nil
}

func (s *SQLiteStore) CountItemsNeedingStage(ctx context.Context, stage model.Stage) (int, error) {
	cols, err := columnsFor(stage)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM content_items WHERE %s`, cols.flag),
	).Scan(&count)
	return count, eris.Wrapf(err, "sqlite: count items needing %s", stage)
}

func (s *SQLiteStore) SetItemHook(ctx context.Context, id string, hook *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET hook = ?, needs_hook_extraction = 0 WHERE id = ?`,
		hook, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set hook %s", id)
	}
	return checkRowsAffected(res, "item", id)
}

func (s *SQLiteStore) SetItemEmbedding(ctx context.Context, id string, vec []float32) error {
	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal embedding")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET embedding = ?, needs_embedding = 0, embedding_locked_at = NULL WHERE id = ?`,
		string(vecJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set embedding %s", id)
	}
	return checkRowsAffected(res, "item", id)
}

func (s *SQLiteStore) SetItemHookCategory(ctx context.Context, id string, labelID *string) error {
	return s.setItemLabel(ctx, "hook_category_id", "needs_hook_classification", id, labelID)
}

func (s *SQLiteStore) SetItemTopic(ctx context.Context, id string, labelID *string) error {
	return s.setItemLabel(ctx, "topic_id", "needs_topic_classification", id, labelID)
}

func (s *SQLiteStore) SetItemAudience(ctx context.Context, id string, labelID *string) error {
	return s.setItemLabel(ctx, "audience_id", "needs_audience_classification", id, labelID)
}

func (s *SQLiteStore) setItemLabel(ctx context.Context, resultCol, flagCol, id string, labelID *string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE content_items SET %s = ?, %s = 0 WHERE id = ?`, resultCol, flagCol),
		labelID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set %s on %s", resultCol, id)
	}
	return checkRowsAffected(res, "item", id)
}

func (s *SQLiteStore) ClaimEmbeddingBatch(ctx context.Context, limit int, ttl time.Duration) ([]model.ContentItem, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-ttl)

	// SQLite has a single writer, so a transaction is enough to make
	// select-and-stamp atomic.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin claim tx")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM content_items
		 WHERE needs_embedding AND embedding IS NULL
		   AND (embedding_locked_at IS NULL OR embedding_locked_at < ?)
		 ORDER BY created_at ASC LIMIT ?`, itemColumns),
		staleBefore, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select claimable items")
	}
	items, err := scanItemRows(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]string, len(items))
	args := []any{now}
	for i, item := range items {
		ids[i] = item.ID
		args = append(args, item.ID)
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE content_items SET embedding_locked_at = ? WHERE id IN (%s)`, placeholders(len(ids))),
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stamp embedding locks")
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit claim tx")
	}

	for i := range items {
		items[i].EmbeddingLockedAt = &now
	}
	return items, nil
}

func (s *SQLiteStore) ReleaseEmbeddingLocks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE content_items SET embedding_locked_at = NULL WHERE id IN (%s)`, placeholders(len(ids))),
		args...,
	)
	return eris.Wrap(err, "sqlite: release embedding locks")
}

// --- Authors ---

func (s *SQLiteStore) ListAuthorsPendingCompletion(ctx context.Context, limit int) ([]model.Author, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM authors
		 WHERE sync_status IN ('scraped', 'processing') AND style_prompt IS NULL
		 ORDER BY created_at ASC LIMIT ?`, authorColumns),
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list authors pending completion")
	}
	defer rows.Close()

	var authors []model.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, *a)
	}
	return authors, eris.Wrap(rows.Err(), "sqlite: iterate authors")
}

func (s *SQLiteStore) CountAuthorsPendingCompletion(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM authors WHERE sync_status IN ('scraped', 'processing') AND style_prompt IS NULL`,
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count authors pending completion")
}

func (s *SQLiteStore) CountAuthorItems(ctx context.Context, authorID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items WHERE author_id = ?`,
		authorID,
	).Scan(&count)
	return count, eris.Wrapf(err, "sqlite: count items for author %s", authorID)
}

func (s *SQLiteStore) CountAuthorUnfinishedItems(ctx context.Context, authorID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items WHERE author_id = ? AND (
			needs_hook_extraction OR needs_embedding OR needs_hook_classification
			OR needs_topic_classification OR needs_audience_classification)`,
		authorID,
	).Scan(&count)
	return count, eris.Wrapf(err, "sqlite: count unfinished items for author %s", authorID)
}

func (s *SQLiteStore) TopItemsByEngagement(ctx context.Context, authorID string, limit int) ([]model.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM content_items WHERE author_id = ?
		 ORDER BY engagement DESC, created_at DESC LIMIT ?`, itemColumns),
		authorID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: top items for author %s", authorID)
	}
	defer rows.Close()

	return scanItemRows(rows)
}

func (s *SQLiteStore) CompleteAuthor(ctx context.Context, authorID string, profile model.StyleProfile) error {
	metricsJSON, err := json.Marshal(profile.Metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal style metrics")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE authors SET sync_status = 'completed', style_prompt = ?, style_metrics = ?, completed_at = ?
		 WHERE id = ? AND style_prompt IS NULL AND sync_status IN ('scraped', 'processing')`,
		profile.Prompt, string(metricsJSON), time.Now().UTC(), authorID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete author %s", authorID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrAuthorNotEligible
	}
	return nil
}

func (s *SQLiteStore) CountAuthorsByStatus(ctx context.Context) (map[model.SyncStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sync_status, COUNT(*) FROM authors GROUP BY sync_status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count authors by status")
	}
	defer rows.Close()

	counts := make(map[model.SyncStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan author status count")
		}
		counts[model.SyncStatus(status)] = count
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate author status counts")
}

// --- Labels ---

func (s *SQLiteStore) ListLabels(ctx context.Context, kind model.LabelKind) ([]model.Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name FROM labels WHERE kind = ? ORDER BY name ASC`,
		string(kind),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s labels", kind)
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Kind, &l.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan label")
		}
		labels = append(labels, l)
	}
	return labels, eris.Wrap(rows.Err(), "sqlite: iterate labels")
}

func (s *SQLiteStore) CreateLabel(ctx context.Context, kind model.LabelKind, name string) (*model.Label, error) {
	l := model.Label{ID: uuid.New().String(), Kind: kind, Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (id, kind, name, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, string(l.Kind), l.Name, time.Now().UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create %s label", kind)
	}
	return &l, nil
}

// --- Job runs ---

func (s *SQLiteStore) CreateJobRun(ctx context.Context, worker string) (*model.JobRun, error) {
	run := model.JobRun{
		ID:        uuid.New().String(),
		Worker:    worker,
		Status:    model.JobRunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_runs (id, worker, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Worker, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create job run for %s", worker)
	}
	return &run, nil
}

func (s *SQLiteStore) FinishJobRun(ctx context.Context, id string, status model.JobRunStatus, counts model.StageCounts, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_runs SET status = ?, finished_at = ?, items_found = ?, items_processed = ?, items_failed = ?, error = ?
		 WHERE id = ? AND status = 'running'`,
		string(status), time.Now().UTC(), counts.Found, counts.Processed, counts.Failed, errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish job run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("job run not running: %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListJobRuns(ctx context.Context, since time.Time, limit int) ([]model.JobRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, worker, status, started_at, finished_at, items_found, items_processed, items_failed, error
		 FROM job_runs WHERE started_at >= ? ORDER BY started_at DESC LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list job runs")
	}
	defer rows.Close()

	var runs []model.JobRun
	for rows.Next() {
		var r model.JobRun
		if err := rows.Scan(&r.ID, &r.Worker, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.ItemsFound, &r.ItemsProcessed, &r.ItemsFailed, &r.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate job runs")
}

// --- AI usage ---

func (s *SQLiteStore) RecordAIUsage(ctx context.Context, usage model.AIUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.New().String()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_usage (id, provider, model, operation, input_tokens, output_tokens, latency_ms, success, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		usage.ID, usage.Provider, usage.Model, usage.Operation,
		usage.InputTokens, usage.OutputTokens, usage.LatencyMS, usage.Success, usage.CostUSD, usage.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: record ai usage")
}

func (s *SQLiteStore) AIUsageTotals(ctx context.Context, since time.Time) (*UsageTotals, error) {
	var t UsageTotals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0)
		 FROM ai_usage WHERE created_at >= ?`,
		since,
	).Scan(&t.Calls, &t.Failures, &t.InputTokens, &t.OutputTokens, &t.CostUSD)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: ai usage totals")
	}
	return &t, nil
}

// --- Worker flags ---

func (s *SQLiteStore) WorkerEnabled(ctx context.Context, worker string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled FROM worker_flags WHERE worker = ?`,
		worker,
	).Scan(&enabled)
	if eris.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: worker flag %s", worker)
	}
	return enabled, nil
}

func (s *SQLiteStore) SetWorkerEnabled(ctx context.Context, worker string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO worker_flags (worker, enabled) VALUES (?, ?)
		 ON CONFLICT (worker) DO UPDATE SET enabled = excluded.enabled`,
		worker, enabled,
	)
	return eris.Wrapf(err, "sqlite: set worker flag %s", worker)
}

// --- Ingestion / admin ---

func (s *SQLiteStore) CreateAuthor(ctx context.Context, author model.Author) (*model.Author, error) {
	if author.ID == "" {
		author.ID = uuid.New().String()
	}
	if author.Status == "" {
		author.Status = model.SyncStatusUnsynced
	}
	author.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (id, name, linkedin_urn, sync_status, created_at) VALUES (?, ?, ?, ?, ?)`,
		author.ID, author.Name, author.LinkedInURN, string(author.Status), author.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create author")
	}
	return &author, nil
}

func (s *SQLiteStore) UpdateAuthorStatus(ctx context.Context, authorID string, status model.SyncStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE authors SET sync_status = ? WHERE id = ?`,
		string(status), authorID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update author status %s", authorID)
	}
	return checkRowsAffected(res, "author", authorID)
}

func (s *SQLiteStore) ResetAuthor(ctx context.Context, authorID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE authors SET sync_status = 'scraping', style_prompt = NULL, style_metrics = NULL, completed_at = NULL WHERE id = ?`,
		authorID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: reset author %s", authorID)
	}
	if err := checkRowsAffected(res, "author", authorID); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE content_items SET
			hook = NULL, embedding = NULL, hook_category_id = NULL, topic_id = NULL, audience_id = NULL,
			needs_hook_extraction = 1, needs_embedding = 1, needs_hook_classification = 1,
			needs_topic_classification = 1, needs_audience_classification = 1,
			embedding_locked_at = NULL
		 WHERE author_id = ?`,
		authorID,
	)
	return eris.Wrapf(err, "sqlite: reset items for author %s", authorID)
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item model.ContentItem) (*model.ContentItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.NeedsHookExtraction = true
	item.NeedsEmbedding = true
	item.NeedsHookClassification = true
	item.NeedsTopicClassification = true
	item.NeedsAudienceClassification = true

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO content_items (id, author_id, content, engagement, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.AuthorID, item.Content, item.Engagement, item.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create item")
	}
	return &item, nil
}

// --- helpers ---

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanItemRows(rows *sql.Rows) ([]model.ContentItem, error) {
	var items []model.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: iterate items")
}

func scanAuthor(row scannable) (*model.Author, error) {
	var a model.Author
	var metricsJSON sql.NullString

	err := row.Scan(&a.ID, &a.Name, &a.LinkedInURN, &a.Status,
		&a.StylePrompt, &metricsJSON, &a.CompletedAt, &a.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan author")
	}
	if metricsJSON.Valid && metricsJSON.String != "" {
		a.StyleMetrics = &model.StyleMetrics{}
		if err := json.Unmarshal([]byte(metricsJSON.String), a.StyleMetrics); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal style metrics")
		}
	}
	return &a, nil
}
