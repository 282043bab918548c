// Package bulk commits import batches to PostgreSQL with COPY.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

var (
	employeeColumns  = []string{"id", "user_id", "responsibility", "admission_at", "phone", "created_at", "updated_at"}
	committedColumns = []string{"job_id", "row_no"}
)

// Writer is a batch writer backed by a pgx pool. It writes to the tables
// migrated by the GORM repository.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// Connect opens a pool for dsn and checks it answers.
func Connect(ctx context.Context, dsn string) (*Writer, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return NewWriter(pool), nil
}

func (w *Writer) CommitBatch(ctx context.Context, jobID uuid.UUID, rows []models.ImportedRow) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	employeeRows := make([][]any, 0, len(rows))
	committedRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		emp := row.Employee
		if emp.ID == uuid.Nil {
			emp.ID = uuid.New()
		}
		employeeRows = append(employeeRows, []any{
			emp.ID, emp.UserID, emp.Responsibility, emp.AdmissionAt, emp.Phone, now, now,
		})
		committedRows = append(committedRows, []any{jobID, int64(row.Row)})
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"employees"}, employeeColumns, pgx.CopyFromRows(employeeRows)); err != nil {
		return fmt.Errorf("copy employees: %w", translate(err))
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"import_committed_rows"}, committedColumns, pgx.CopyFromRows(committedRows)); err != nil {
		return fmt.Errorf("copy committed rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (w *Writer) Close() {
	w.pool.Close()
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", e.ErrDuplicateEmployee, pgErr.Detail)
	}
	return err
}
