package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/draftline/content-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (tests).
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS authors (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	linkedin_urn TEXT NOT NULL DEFAULT '',
	sync_status  TEXT NOT NULL DEFAULT 'unsynced',
	style_prompt  TEXT,
	style_metrics JSONB,
	completed_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS content_items (
	id               TEXT PRIMARY KEY,
	author_id        TEXT NOT NULL REFERENCES authors(id),
	content          TEXT NOT NULL,
	hook             TEXT,
	embedding        JSONB,
	hook_category_id TEXT,
	topic_id         TEXT,
	audience_id      TEXT,
	needs_hook_extraction         BOOLEAN NOT NULL DEFAULT true,
	needs_embedding               BOOLEAN NOT NULL DEFAULT true,
	needs_hook_classification     BOOLEAN NOT NULL DEFAULT true,
	needs_topic_classification    BOOLEAN NOT NULL DEFAULT true,
	needs_audience_classification BOOLEAN NOT NULL DEFAULT true,
	embedding_locked_at TIMESTAMPTZ,
	engagement       INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS labels (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_runs (
	id              TEXT PRIMARY KEY,
	worker          TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at     TIMESTAMPTZ,
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
	input_tokens  BIGINT NOT NULL DEFAULT 0,
	output_tokens BIGINT NOT NULL DEFAULT 0,
	latency_ms    BIGINT NOT NULL DEFAULT 0,
	success       BOOLEAN NOT NULL,
	cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS worker_flags (
	worker  TEXT PRIMARY KEY,
	enabled BOOLEAN NOT NULL DEFAULT true
);

CREATE INDEX IF NOT EXISTS idx_items_author ON content_items(author_id);
CREATE INDEX IF NOT EXISTS idx_items_needs_hook ON content_items(created_at) WHERE needs_hook_extraction;
CREATE INDEX IF NOT EXISTS idx_items_needs_embedding ON content_items(created_at) WHERE needs_embedding;
CREATE INDEX IF NOT EXISTS idx_items_needs_hook_class ON content_items(created_at) WHERE needs_hook_classification;
CREATE INDEX IF NOT EXISTS idx_items_needs_topic ON content_items(created_at) WHERE needs_topic_classification;
CREATE INDEX IF NOT EXISTS idx_items_needs_audience ON content_items(created_at) WHERE needs_audience_classification;
CREATE INDEX IF NOT EXISTS idx_authors_status ON authors(sync_status);
CREATE INDEX IF NOT EXISTS idx_labels_kind ON labels(kind);
CREATE INDEX IF NOT EXISTS idx_job_runs_started ON job_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_ai_usage_created ON ai_usage(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Items ---

func (s *PostgresStore) SelectItemsNeedingStage(ctx context.Context, stage model.Stage, limit int) ([]model.ContentItem, error) {
	cols, err := columnsFor(stage)
	if err != nil {
		return nil, err
	}

	// Oldest first: new arrivals must not starve items already waiting.
	query := fmt.Sprintf(
		`SELECT %s FROM content_items WHERE %s AND %s IS NULL ORDER BY created_at ASC LIMIT $1`,
		itemColumns, cols.flag, cols.result,
	)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select items needing %s", stage)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*model.ContentItem, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM content_items WHERE id = $1`, itemColumns),
		id,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("item not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get item %s", id)
	}
	return item, nil
}

func (s *PostgresStore) CountItemsNeedingStage(ctx context.Context, stage model.Stage) (int, error) {
	cols, err := columnsFor(stage)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM content_items WHERE %s`, cols.flag),
	).Scan(&count)
	return count, eris.Wrapf(err, "postgres: count items needing %s", stage)
}

func (s *PostgresStore) SetItemHook(ctx context.Context, id string, hook *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE content_items SET hook = $1, needs_hook_extraction = false WHERE id = $2`,
		hook, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set hook %s", id)
	}
	return checkAffected(tag, "item", id)
}

func (s *PostgresStore) SetItemEmbedding(ctx context.Context, id string, vec []float32) error {
	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal embedding")
	}

	// The lock is cleared in the same update so a successful write releases
	// the claim without a second round trip.
	tag, err := s.pool.Exec(ctx,
		`UPDATE content_items SET embedding = $1, needs_embedding = false, embedding_locked_at = NULL WHERE id = $2`,
		vecJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set embedding %s", id)
	}
	return checkAffected(tag, "item", id)
}

func (s *PostgresStore) SetItemHookCategory(ctx context.Context, id string, labelID *string) error {
	return s.setItemLabel(ctx, "hook_category_id", "needs_hook_classification", id, labelID)
}

func (s *PostgresStore) SetItemTopic(ctx context.Context, id string, labelID *string) error {
	return s.setItemLabel(ctx, "topic_id", "needs_topic_classification", id, labelID)
}

func (s *PostgresStore) SetItemAudience(ctx context.Context, id string, labelID *string) error {
	return s.setItemLabel(ctx, "audience_id", "needs_audience_classification", id, labelID)
}

func (s *PostgresStore) setItemLabel(ctx context.Context, resultCol, flagCol, id string, labelID *string) error {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE content_items SET %s = $1, %s = false WHERE id = $2`, resultCol, flagCol),
		labelID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set %s on %s", resultCol, id)
	}
	return checkAffected(tag, "item", id)
}

func (s *PostgresStore) ClaimEmbeddingBatch(ctx context.Context, limit int, ttl time.Duration) ([]model.ContentItem, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-ttl)

	// SKIP LOCKED keeps two overlapping invocations from claiming the same
	// rows; the stale cutoff reclaims locks left behind by a crashed run.
	// UPDATE ... RETURNING emits rows in no particular order, so the outer
	// select re-sorts the claimed batch oldest-first.
	query := fmt.Sprintf(`
		WITH claimed AS (
			UPDATE content_items SET embedding_locked_at = $1
			WHERE id IN (
				SELECT id FROM content_items
				WHERE needs_embedding AND embedding IS NULL
				  AND (embedding_locked_at IS NULL OR embedding_locked_at < $2)
				ORDER BY created_at ASC
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
			RETURNING %s
		)
		SELECT %s FROM claimed ORDER BY created_at ASC`, itemColumns, itemColumns)

	rows, err := s.pool.Query(ctx, query, now, staleBefore, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim embedding batch")
	}
	defer rows.Close()

	return scanItems(rows)
}

func (s *PostgresStore) ReleaseEmbeddingLocks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE content_items SET embedding_locked_at = NULL WHERE id = ANY($1)`,
		ids,
	)
	return eris.Wrap(err, "postgres: release embedding locks")
}

// --- Authors ---

const authorColumns = `id, name, linkedin_urn, sync_status, style_prompt, style_metrics, completed_at, created_at`

func (s *PostgresStore) ListAuthorsPendingCompletion(ctx context.Context, limit int) ([]model.Author, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM authors
		 WHERE sync_status IN ('scraped', 'processing') AND style_prompt IS NULL
		 ORDER BY created_at ASC LIMIT $1`, authorColumns),
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list authors pending completion")
	}
	defer rows.Close()

	return scanAuthors(rows)
}

func (s *PostgresStore) CountAuthorsPendingCompletion(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM authors WHERE sync_status IN ('scraped', 'processing') AND style_prompt IS NULL`,
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count authors pending completion")
}

func (s *PostgresStore) CountAuthorItems(ctx context.Context, authorID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM content_items WHERE author_id = $1`,
		authorID,
	).Scan(&count)
	return count, eris.Wrapf(err, "postgres: count items for author %s", authorID)
}

func (s *PostgresStore) CountAuthorUnfinishedItems(ctx context.Context, authorID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM content_items WHERE author_id = $1 AND (
			needs_hook_extraction OR needs_embedding OR needs_hook_classification
			OR needs_topic_classification OR needs_audience_classification)`,
		authorID,
	).Scan(&count)
	return count, eris.Wrapf(err, "postgres: count unfinished items for author %s", authorID)
}

func (s *PostgresStore) TopItemsByEngagement(ctx context.Context, authorID string, limit int) ([]model.ContentItem, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM content_items WHERE author_id = $1
		 ORDER BY engagement DESC, created_at DESC LIMIT $2`, itemColumns),
		authorID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: top items for author %s", authorID)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (s *PostgresStore) CompleteAuthor(ctx context.Context, authorID string, profile model.StyleProfile) error {
	metricsJSON, err := json.Marshal(profile.Metrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal style metrics")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE authors SET sync_status = 'completed', style_prompt = $1, style_metrics = $2, completed_at = $3
		 WHERE id = $4 AND style_prompt IS NULL AND sync_status IN ('scraped', 'processing')`,
		profile.Prompt, metricsJSON, time.Now().UTC(), authorID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete author %s", authorID)
	}
	if tag.RowsAffected() == 0 {
		return ErrAuthorNotEligible
	}
	return nil
}

func (s *PostgresStore) CountAuthorsByStatus(ctx context.Context) (map[model.SyncStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sync_status, COUNT(*) FROM authors GROUP BY sync_status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count authors by status")
	}
	defer rows.Close()

	counts := make(map[model.SyncStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan author status count")
		}
		counts[model.SyncStatus(status)] = count
	}
	return counts, eris.Wrap(rows.Err(), "postgres: iterate author status counts")
}

// --- Labels ---

func (s *PostgresStore) ListLabels(ctx context.Context, kind model.LabelKind) ([]model.Label, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, name FROM labels WHERE kind = $1 ORDER BY name ASC`,
		string(kind),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s labels", kind)
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Kind, &l.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan label")
		}
		labels = append(labels, l)
	}
	return labels, eris.Wrap(rows.Err(), "postgres: iterate labels")
}

func (s *PostgresStore) CreateLabel(ctx context.Context, kind model.LabelKind, name string) (*model.Label, error) {
	l := model.Label{ID: uuid.New().String(), Kind: kind, Name: name}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO labels (id, kind, name) VALUES ($1, $2, $3)`,
		l.ID, string(l.Kind), l.Name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create %s label", kind)
	}
	return &l, nil
}

// --- Job runs ---

func (s *PostgresStore) CreateJobRun(ctx context.Context, worker string) (*model.JobRun, error) {
	run := model.JobRun{
		ID:        uuid.New().String(),
		Worker:    worker,
		Status:    model.JobRunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_runs (id, worker, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Worker, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create job run for %s", worker)
	}
	return &run, nil
}

func (s *PostgresStore) FinishJobRun(ctx context.Context, id string, status model.JobRunStatus, counts model.StageCounts, errMsg string) error {
	// The status guard makes finalization exactly-once: a second finish is
	// a no-op failure, never an overwrite.
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_runs SET status = $1, finished_at = $2, items_found = $3, items_processed = $4, items_failed = $5, error = $6
		 WHERE id = $7 AND status = 'running'`,
		string(status), time.Now().UTC(), counts.Found, counts.Processed, counts.Failed, errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish job run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job run not running: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListJobRuns(ctx context.Context, since time.Time, limit int) ([]model.JobRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, worker, status, started_at, finished_at, items_found, items_processed, items_failed, error
		 FROM job_runs WHERE started_at >= $1 ORDER BY started_at DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list job runs")
	}
	defer rows.Close()

	var runs []model.JobRun
	for rows.Next() {
		var r model.JobRun
		if err := rows.Scan(&r.ID, &r.Worker, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.ItemsFound, &r.ItemsProcessed, &r.ItemsFailed, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate job runs")
}

// --- AI usage ---

func (s *PostgresStore) RecordAIUsage(ctx context.Context, usage model.AIUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.New().String()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_usage (id, provider, model, operation, input_tokens, output_tokens, latency_ms, success, cost_usd, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		usage.ID, usage.Provider, usage.Model, usage.Operation,
		usage.InputTokens, usage.OutputTokens, usage.LatencyMS, usage.Success, usage.CostUSD, usage.CreatedAt,
	)
	return eris.Wrap(err, "postgres: record ai usage")
}

func (s *PostgresStore) AIUsageTotals(ctx context.Context, since time.Time) (*UsageTotals, error) {
	var t UsageTotals
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE NOT success),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0)
		 FROM ai_usage WHERE created_at >= $1`,
		since,
	).Scan(&t.Calls, &t.Failures, &t.InputTokens, &t.OutputTokens, &t.CostUSD)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: ai usage totals")
	}
	return &t, nil
}

// --- Worker flags ---

func (s *PostgresStore) WorkerEnabled(ctx context.Context, worker string) (bool, error) {
	var enabled bool
	err := s.pool.QueryRow(ctx,
		`SELECT enabled FROM worker_flags WHERE worker = $1`,
		worker,
	).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: worker flag %s", worker)
	}
	return enabled, nil
}

func (s *PostgresStore) SetWorkerEnabled(ctx context.Context, worker string, enabled bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO worker_flags (worker, enabled) VALUES ($1, $2)
		 ON CONFLICT (worker) DO UPDATE SET enabled = $2`,
		worker, enabled,
	)
	return eris.Wrapf(err, "postgres: set worker flag %s", worker)
}

// --- Ingestion / admin ---

func (s *PostgresStore) CreateAuthor(ctx context.Context, author model.Author) (*model.Author, error) {
	if author.ID == "" {
		author.ID = uuid.New().String()
	}
	if author.Status == "" {
		author.Status = model.SyncStatusUnsynced
	}
	author.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO authors (id, name, linkedin_urn, sync_status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		author.ID, author.Name, author.LinkedInURN, string(author.Status), author.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create author")
	}
	return &author, nil
}

func (s *PostgresStore) UpdateAuthorStatus(ctx context.Context, authorID string, status model.SyncStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE authors SET sync_status = $1 WHERE id = $2`,
		string(status), authorID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update author status %s", authorID)
	}
	return checkAffected(tag, "author", authorID)
}

func (s *PostgresStore) ResetAuthor(ctx context.Context, authorID string) error {
	// A re-scrape is the one sanctioned way flags go false→true. Results
	// are cleared alongside so the stage selections pick the items up.
	tag, err := s.pool.Exec(ctx,
		`UPDATE authors SET sync_status = 'scraping', style_prompt = NULL, style_metrics = NULL, completed_at = NULL WHERE id = $1`,
		authorID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: reset author %s", authorID)
	}
	if err := checkAffected(tag, "author", authorID); err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE content_items SET
			hook = NULL, embedding = NULL, hook_category_id = NULL, topic_id = NULL, audience_id = NULL,
			needs_hook_extraction = true, needs_embedding = true, needs_hook_classification = true,
			needs_topic_classification = true, needs_audience_classification = true,
			embedding_locked_at = NULL
		 WHERE author_id = $1`,
		authorID,
	)
	return eris.Wrapf(err, "postgres: reset items for author %s", authorID)
}

func (s *PostgresStore) CreateItem(ctx context.Context, item model.ContentItem) (*model.ContentItem, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO content_items (id, author_id, content, engagement, created_at) VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.AuthorID, item.Content, item.Engagement, item.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create item")
	}
	return &item, nil
}

// --- scan helpers ---

func checkAffected(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanItem(row scannable) (*model.ContentItem, error) {
	var i model.ContentItem
	var embeddingJSON []byte

	err := row.Scan(
		&i.ID, &i.AuthorID, &i.Content, &i.Hook, &embeddingJSON,
		&i.HookCategoryID, &i.TopicID, &i.AudienceID,
		&i.NeedsHookExtraction, &i.NeedsEmbedding, &i.NeedsHookClassification,
		&i.NeedsTopicClassification, &i.NeedsAudienceClassification,
		&i.EmbeddingLockedAt, &i.Engagement, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &i.Embedding); err != nil {
			return nil, eris.Wrap(err, "unmarshal embedding")
		}
	}
	return &i, nil
}

func scanItems(rows pgx.Rows) ([]model.ContentItem, error) {
	var items []model.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: iterate items")
}

func scanAuthors(rows pgx.Rows) ([]model.Author, error) {
	var authors []model.Author
	for rows.Next() {
		var a model.Author
		var metricsJSON []byte
		if err := rows.Scan(&a.ID, &a.Name, &a.LinkedInURN, &a.Status,
			&a.StylePrompt, &metricsJSON, &a.CompletedAt, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan author")
		}
		if len(metricsJSON) > 0 {
			a.StyleMetrics = &model.StyleMetrics{}
			if err := json.Unmarshal(metricsJSON, a.StyleMetrics); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal style metrics")
			}
		}
		authors = append(authors, a)
	}
	return authors, eris.Wrap(rows.Err(), "postgres: iterate authors")
}
