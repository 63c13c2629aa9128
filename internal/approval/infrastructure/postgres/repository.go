package postgres

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const selectApproval = `SELECT id, event_id, approver_id, status, comment, approved_at, COALESCE(idempotency_key, '') FROM approvals`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Insert relies on the unique (event, approver, key) constraint. A NULL key never conflicts, so
// keyless decisions always insert.
func (r *Repository) Insert(ctx context.Context, a domain.Approval) (domain.Approval, bool, error) {
	ct, err := r.pool.Exec(ctx, `INSERT INTO approvals (id, event_id, approver_id, status, comment, approved_at, idempotency_key)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''))
		ON CONFLICT (event_id, approver_id, idempotency_key) DO NOTHING`,
		a.ID, a.EventID, a.ApproverID, string(a.Status), a.Comment, a.ApprovedAt, a.IdempotencyKey)
	if err != nil {
		return domain.Approval{}, false, err
	}
	if ct.RowsAffected() == 1 {
		return a, true, nil
	}
	prev, err := r.FindByKey(ctx, a.EventID, a.ApproverID, a.IdempotencyKey)
	if err != nil {
		return domain.Approval{}, false, err
	}
	return prev, false, nil
}

func (r *Repository) FindByKey(ctx context.Context, eventID, approverID, key string) (domain.Approval, error) {
	a, err := scanApproval(r.pool.QueryRow(ctx, selectApproval+` WHERE event_id=$1 AND approver_id=$2 AND idempotency_key=$3`,
		eventID, approverID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Approval{}, domain.ErrApprovalNotFound
	}
	return a, err
}

func (r *Repository) Update(ctx context.Context, a domain.Approval) error {
	ct, err := r.pool.Exec(ctx, `UPDATE approvals SET approver_id=$2, status=$3, comment=$4, approved_at=$5 WHERE id=$1`,
		a.ID, a.ApproverID, string(a.Status), a.Comment, a.ApprovedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrApprovalNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Approval, error) {
	a, err := scanApproval(r.pool.QueryRow(ctx, selectApproval+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Approval{}, domain.ErrApprovalNotFound
	}
	return a, err
}

func (r *Repository) List(ctx context.Context) ([]domain.Approval, error) {
	return r.query(ctx, selectApproval+` ORDER BY approved_at, id`)
}

func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]domain.Approval, error) {
	return r.query(ctx, selectApproval+` WHERE event_id=$1 ORDER BY approved_at, id`, eventID)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM approvals WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrApprovalNotFound
	}
	return nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]domain.Approval, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApproval(row pgx.Row) (domain.Approval, error) {
	var a domain.Approval
	var status string
	err := row.Scan(&a.ID, &a.EventID, &a.ApproverID, &status, &a.Comment, &a.ApprovedAt, &a.IdempotencyKey)
	a.Status = domain.Status(status)
	return a, err
}
