package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/exopredict/errors"
	exotest "github.com/teranos/exopredict/internal/testing"
)

func migratedStore(t *testing.T) *Store {
	t.Helper()
	db := exotest.CreateTestDB(t)
	require.NoError(t, Migrate(db, zaptest.NewLogger(t).Sugar()))
	return NewStore(db)
}

func TestOpenWithMigrations(t *testing.T) {
	t.Run("opens database and runs migrations", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		var journalMode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
		assert.Equal(t, "wal", journalMode)

		var busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)

		var versions int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 2, versions)
	})

	t.Run("migrating twice is a no-op", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		var versions int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 2, versions)
	})

	t.Run("errors carry stack traces", func(t *testing.T) {
		_, err := OpenWithMigrations(filepath.Join(t.TempDir(), "missing", "dir", "history.db"), nil)
		require.Error(t, err)
		assert.Contains(t, fmt.Sprintf("%+v", err), "connection.go")
	})
}

func TestRecordAndRecent(t *testing.T) {
	s := migratedStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	confidence := 0.87
	first, err := s.Record(ctx, Entry{
		CreatedAt:  base,
		Source:     SourceAnalyze,
		Classifier: "random_forest",
		Rows:       1,
		Prediction: "CONFIRMED",
		Confidence: &confidence,
		RequestID:  "req-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.Record(ctx, Entry{
		CreatedAt: base.Add(time.Second),
		Source:    SourcePredict,
		Rows:      12,
		Location:  "/tmp/predictions.csv",
	})
	require.NoError(t, err)

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, SourcePredict, entries[0].Source, "newest first")
	assert.Equal(t, 12, entries[0].Rows)
	assert.Nil(t, entries[0].Confidence)
	assert.Equal(t, "/tmp/predictions.csv", entries[0].Location)

	assert.Equal(t, first, entries[1])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecentLimits(t *testing.T) {
	s := migratedStore(t)
	ctx := context.Background()
	for i := 0; i < DefaultLimit+5; i++ {
		_, err := s.Record(ctx, Entry{Source: SourceCLI, Rows: i + 1})
		require.NoError(t, err)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{3, 3},
		{MaxLimit + 1, DefaultLimit + 5},
	}
	for _, tt := range tests {
		entries, err := s.Recent(ctx, tt.limit)
		require.NoError(t, err)
		assert.Len(t, entries, tt.want, "limit %d", tt.limit)
	}
}

func TestRecordRequiresSource(t *testing.T) {
	s := migratedStore(t)
	_, err := s.Record(context.Background(), Entry{Rows: 1})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestRecord_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	s := NewStore(db)
	s.now = func() time.Time { return time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC) }

	mock.ExpectExec("INSERT INTO predictions").
		WithArgs(
			sqlmock.AnyArg(), // id
			"req-9",
			"2024-01-31T09:30:00.000000000Z",
			SourceAnalyzeCSV,
			"decision_tree",
			3,
			"",
			nil,
			"",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = s.Record(context.Background(), Entry{
		RequestID:  "req-9",
		Source:     SourceAnalyzeCSV,
		Classifier: "decision_tree",
		Rows:       3,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_SqlmockErrors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id").WillReturnError(sql.ErrConnDone)

		_, err = NewStore(db).Recent(context.Background(), 5)
		require.Error(t, err)
		assert.True(t, IsDatabaseClosed(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad timestamp", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "request_id", "created_at", "source", "classifier", "row_count", "prediction", "confidence", "location"}).
			AddRow("id-1", "", "yesterday", SourceCLI, "", 1, "", nil, "")
		mock.ExpectQuery("SELECT id").WithArgs(5).WillReturnRows(rows)

		_, err = NewStore(db).Recent(context.Background(), 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "created_at")
	})
}

func TestIsDatabaseClosed(t *testing.T) {
	assert.False(t, IsDatabaseClosed(nil))
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "record")))
	assert.True(t, IsDatabaseClosed(errors.New("sql: database is closed")))
	assert.False(t, IsDatabaseClosed(errors.New("constraint failed")))
}
