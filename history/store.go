package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/exopredict/errors"
)

// Recent limits.
const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Sources of recorded predictions.
const (
	SourceAnalyze    = "analyze"
	SourceAnalyzeCSV = "analyze_csv"
	SourcePredict    = "predict"
	SourceCLI        = "cli"
)

// Entry is one recorded prediction call.
type Entry struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Source     string    `json:"source"`
	Classifier string    `json:"classifier,omitempty"`
	Rows       int       `json:"rows"`
	// Prediction is the label of a single-row call.
	Prediction string   `json:"prediction,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	// Location is where a batch call wrote its table.
	Location string `json:"location,omitempty"`
}

// Store reads and writes prediction entries.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a store over an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record inserts e, assigning an id and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Source == "" {
		return Entry{}, errors.NewInvalidRequestError("history entry has no source")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	var confidence sql.NullFloat64
	if e.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *e.Confidence, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, request_id, created_at, source, classifier, row_count, prediction, confidence, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, e.CreatedAt.Format(timeLayout), e.Source, e.Classifier,
		e.Rows, e.Prediction, confidence, e.Location)
	if err != nil {
		return Entry{}, errors.Wrap(err, "insert prediction entry")
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// means DefaultLimit; limits above MaxLimit are capped.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, created_at, source, classifier, row_count, prediction, confidence, location
		FROM predictions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query prediction entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			createdAt  string
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &createdAt, &e.Source, &e.Classifier,
			&e.Rows, &e.Prediction, &confidence, &e.Location); err != nil {
			return nil, errors.Wrap(err, "scan prediction entry")
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, errors.Wrapf(err, "parse created_at of %s", e.ID)
		}
		if confidence.Valid {
			c := confidence.Float64
			e.Confidence = &c
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate prediction entries")
	}
	return entries, nil
}

// Count returns the number of recorded entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count prediction entries")
	}
	return n, nil
}
