package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository resolves student display names for leaderboards.
// Student accounts themselves are managed elsewhere.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Names returns id → name for the given students. Unknown ids are omitted.
func (r *StudentRepository) Names(ctx context.Context, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name FROM students WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list student names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan student name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// CreateStudent inserts or renames a student.
func (r *StudentRepository) CreateStudent(ctx context.Context, id int, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO students (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
