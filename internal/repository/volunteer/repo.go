// Package volunteer queries precomputed volunteer embeddings by cosine distance.
package volunteer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/enturk/intelligence/internal/domain"
)

// SQLSTATE for a missing relation: the operator has not run the bootstrap yet.
const undefinedTableCode = "42P01"

// Similarity is computed and canonicalized in SQL: clamped into [0,1] and
// rounded to 6 decimal places, guarding against floating-point drift outside
// the valid cosine range. Only active volunteers participate.
const queryNearestSQL = `
	SELECT
		u.id::text AS volunteer_id,
		u.full_name,
		u.email,
		vv.skill_summary,
		GREATEST(
			0::numeric,
			LEAST(1::numeric, ROUND((1 - (vv.embedding <=> $1))::numeric, 6))
		)::float8 AS cosine_similarity
	FROM volunteer_vectors vv
	JOIN users u ON u.id = vv.user_id
	WHERE u.is_active = TRUE
	ORDER BY vv.embedding <=> $1
	LIMIT $2`

// Repo reads ranked volunteer matches from the pgvector-backed store.
type Repo struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// New creates a volunteer repository over a shared connection pool.
func New(pool *pgxpool.Pool, queryTimeout time.Duration) *Repo {
	return &Repo{pool: pool, queryTimeout: queryTimeout}
}

// QueryNearest returns up to k active volunteers ordered by ascending cosine
// distance to the query vector. The borrowed connection is released on every
// exit path.
func (r *Repo) QueryNearest(ctx context.Context, vector []float32, k int) ([]domain.VolunteerMatch, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", domain.ErrStoreUnavailable)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, queryNearestSQL, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, mapStoreError("query nearest", err)
	}
	defer rows.Close()

	var matches []domain.VolunteerMatch
	for rows.Next() {
		var m domain.VolunteerMatch
		if err := rows.Scan(&m.VolunteerID, &m.FullName, &m.Email, &m.SkillSummary, &m.CosineSimilarity); err != nil {
			return nil, mapStoreError("scan match", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError("read matches", err)
	}

	return matches, nil
}

// mapStoreError translates pgx errors into the domain taxonomy at this single
// boundary. A missing relation (operator must bootstrap) is never conflated
// with a connectivity failure (caller may retry).
func mapStoreError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == undefinedTableCode {
			return fmt.Errorf("%s: relation %s: %w", op, pgErr.TableName, domain.ErrSchemaNotReady)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: timed out: %w", op, domain.ErrStoreUnavailable)
	}

	return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
}
