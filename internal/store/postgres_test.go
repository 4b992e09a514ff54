package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftline/content-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_GetItem_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM content_items WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetItem(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetItemHook_ClearsFlag(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	hook := "Nobody tells you this about fundraising."
	mock.ExpectExec(`UPDATE content_items SET hook = \$1, needs_hook_extraction = false WHERE id = \$2`).
		WithArgs(&hook, "item-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SetItemHook(context.Background(), "item-1", &hook))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetItemHook_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE content_items SET hook`).
		WithArgs(pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetItemHook(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClaimEmbeddingBatch_UsesSkipLocked(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`(?s)FOR UPDATE SKIP LOCKED.+SELECT .+ FROM claimed ORDER BY created_at ASC`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "author_id", "content", "hook", "embedding", "hook_category_id", "topic_id", "audience_id",
			"needs_hook_extraction", "needs_embedding", "needs_hook_classification",
			"needs_topic_classification", "needs_audience_classification",
			"embedding_locked_at", "engagement", "created_at",
		}))

	items, err := s.ClaimEmbeddingBatch(context.Background(), 50, 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteAuthor_NotEligible(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE authors SET sync_status = 'completed'`).
		WithArgs("Write like Dana.", pgxmock.AnyArg(), pgxmock.AnyArg(), "author-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteAuthor(context.Background(), "author-1", model.StyleProfile{Prompt: "Write like Dana."})
	require.ErrorIs(t, err, ErrAuthorNotEligible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishJobRun_AlreadyFinished(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE job_runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), 3, 3, 0, "", "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishJobRun(context.Background(), "run-1", model.JobRunStatusComplete, model.StageCounts{Found: 3, Processed: 3}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WorkerEnabled_DefaultsTrue(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT enabled FROM worker_flags WHERE worker = \$1`).
		WithArgs("embedding").
		WillReturnError(pgx.ErrNoRows)

	enabled, err := s.WorkerEnabled(context.Background(), "embedding")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAuthorsByStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT sync_status, COUNT\(\*\) FROM authors GROUP BY sync_status`).
		WillReturnRows(pgxmock.NewRows([]string{"sync_status", "count"}).
			AddRow("scraped", 2).
			AddRow("completed", 5))

	counts, err := s.CountAuthorsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.SyncStatusScraped])
	assert.Equal(t, 5, counts[model.SyncStatusCompleted])
	assert.NoError(t, mock.ExpectationsWereMet())
}
