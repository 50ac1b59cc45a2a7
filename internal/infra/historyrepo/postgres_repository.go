package historyrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/ask-console/internal/domain/history"
	"github.com/yanqian/ask-console/internal/domain/page"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_logs (
	id            BIGSERIAL PRIMARY KEY,
	session_id    TEXT NOT NULL,
	client_ip     TEXT,
	question      TEXT NOT NULL,
	response_type TEXT NOT NULL,
	answer        TEXT,
	warning       TEXT,
	status_code   INTEGER NOT NULL,
	error         TEXT,
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS query_logs_session_created_idx ON query_logs (session_id, created_at DESC);
`

// PostgresRepository implements history.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the query_logs table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Record inserts one query log row.
func (r *PostgresRepository) Record(ctx context.Context, rec page.QueryRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO query_logs (session_id, client_ip, question, response_type, answer, warning, status_code, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.SessionID, nullable(rec.ClientIP), rec.Question, rec.ResponseType, nullable(rec.Answer), nullable(rec.Warning),
		rec.StatusCode, nullable(rec.Error), rec.DurationMs, rec.CreatedAt)
	return err
}

// Recent lists the newest rows of a session.
func (r *PostgresRepository) Recent(ctx context.Context, sessionID string, limit int) ([]page.QueryRecord, error) {
	if limit <= 0 {
		limit = history.DefaultRecentLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, client_ip, question, response_type, answer, warning, status_code, error, duration_ms, created_at
		FROM query_logs
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []page.QueryRecord
	for rows.Next() {
		var (
			rec                                  page.QueryRecord
			clientIP, answer, warning, errorText *string
		)
		if err := rows.Scan(&rec.SessionID, &clientIP, &rec.Question, &rec.ResponseType, &answer, &warning,
			&rec.StatusCode, &errorText, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ClientIP = deref(clientIP)
		rec.Answer = deref(answer)
		rec.Warning = deref(warning)
		rec.Error = deref(errorText)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ history.Repository = (*PostgresRepository)(nil)
