package population

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/atalaykaya/demographics-api/internal/apperror"
	domain "github.com/atalaykaya/demographics-api/internal/population"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceAll writes every state total inside one transaction. INSERT OR
// REPLACE keeps one row per state, so re-running with the same input is a
// no-op apart from the last_updated stamp.
func (r *Repository) ReplaceAll(ctx context.Context, totals map[string]int64, sourceFile string) (int64, error) {
	if len(totals) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("replace populations: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT OR REPLACE INTO state_populations
		(state_name, total_population, last_updated, source_file)
		VALUES (?, ?, ?, ?)`

	now := time.Now().UTC().Format(time.RFC3339)
	var written int64
	for state, total := range totals {
		if _, err := tx.ExecContext(ctx, query, state, total, now, sourceFile); err != nil {
			return 0, fmt.Errorf("replace populations: upsert %s: %w", state, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace populations: commit: %w", err)
	}

	return written, nil
}

func (r *Repository) Get(ctx context.Context, stateName string) (*domain.StatePopulation, error) {
	const query = `SELECT state_name, total_population, last_updated, source_file
		FROM state_populations WHERE state_name = ?`

	p := &domain.StatePopulation{}
	var updatedStr string

	err := r.db.QueryRowContext(ctx, query, stateName).Scan(
		&p.StateName, &p.TotalPopulation, &updatedStr, &p.SourceFile,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.New(apperror.NotFound, fmt.Sprintf("state '%s' not found", stateName))
	}
	if err != nil {
		return nil, fmt.Errorf("get state population: %w", err)
	}

	p.LastUpdated, _ = time.Parse(time.RFC3339, updatedStr)
	return p, nil
}

func (r *Repository) List(ctx context.Context, stateNames []string) ([]domain.StatePopulation, error) {
	query := `SELECT state_name, total_population, last_updated, source_file
		FROM state_populations`

	var args []any
	if len(stateNames) > 0 {
		placeholders := make([]string, len(stateNames))
		for i, name := range stateNames {
			placeholders[i] = "?"
			args = append(args, name)
		}
		query += fmt.Sprintf(" WHERE state_name IN (%s)", strings.Join(placeholders, ", ")) //nolint:gosec // placeholders are not user input
	}
	query += " ORDER BY state_name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list state populations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var populations []domain.StatePopulation
	for rows.Next() {
		var p domain.StatePopulation
		var updatedStr string
		if err := rows.Scan(&p.StateName, &p.TotalPopulation, &updatedStr, &p.SourceFile); err != nil {
			return nil, fmt.Errorf("scan state population: %w", err)
		}
		p.LastUpdated, _ = time.Parse(time.RFC3339, updatedStr)
		populations = append(populations, p)
	}

	return populations, rows.Err()
}
