package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/bonafide"
)

type bonafideRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

var _ bonafide.Repository = (*bonafideRepository)(nil) // interface compliance check

func NewBonafideRepository(db *sqlx.DB) *bonafideRepository {
	return &bonafideRepository{db: db, ext: db}
}

type bonafideRow struct {
	ID              string      `db:"id"`
	StudentRoll     string      `db:"student_roll"`
	Reason          string      `db:"reason"`
	Status          string      `db:"status"`
	RejectionReason null.String `db:"rejection_reason"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (r bonafideRow) toRequest() bonafide.Request {
	return bonafide.Request{
		ID:          r.ID,
		StudentRoll: r.StudentRoll,
		Reason:      r.Reason,
		// rows written by the legacy system may carry old status spellings
		Status:          bonafide.NormalizeStatus(r.Status),
		RejectionReason: r.RejectionReason.Ptr(),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (repo *bonafideRepository) CreateRequest(ctx context.Context, req bonafide.Request) (bonafide.Request, error) {
	const q = `
		INSERT INTO bonafide_request (id, student_roll, reason, status, rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.ext.ExecContext(ctx, q,
		req.ID, req.StudentRoll, req.Reason, string(req.Status),
		null.StringFromPtr(req.RejectionReason), req.CreatedAt.UTC(), req.UpdatedAt.UTC())
	if err != nil {
		return bonafide.Request{}, errors.Wrap(err, "inserting bonafide request")
	}
	return req, nil
}

func (repo *bonafideRepository) GetRequestByID(ctx context.Context, id string) (bonafide.Request, error) {
	const q = `SELECT * FROM bonafide_request WHERE id = $1`
	var row bonafideRow
	if err := sqlx.GetContext(ctx, repo.ext, &row, q, id); err != nil {
		return bonafide.Request{}, trapNoRowsErr(err, bonafide.ErrNotFound, "finding bonafide request")
	}
	return row.toRequest(), nil
}

func (repo *bonafideRepository) QueryRequests(ctx context.Context, filter bonafide.QueryFilter) ([]bonafide.Request, error) {
	q := `SELECT * FROM bonafide_request`
	var conds []string
	var args []interface{}

	if filter.StudentRoll != "" {
		args = append(args, filter.StudentRoll)
		conds = append(conds, fmt.Sprintf("student_roll = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		// match legacy spellings too
		var spellings []string
		for _, status := range filter.Statuses {
			spellings = append(spellings, bonafide.StoredSpellings(status)...)
		}
		args = append(args, pq.Array(spellings))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at"

	var rows []bonafideRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying bonafide requests")
	}
	reqs := make([]bonafide.Request, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, row.toRequest())
	}
	return reqs, nil
}

func (repo *bonafideRepository) CountRequestsSince(ctx context.Context, roll string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bonafide_request WHERE student_roll = $1 AND created_at >= $2`
	var count int
	err := repo.ext.QueryRowxContext(ctx, q, roll, since.UTC()).Scan(&count)
	return count, errors.Wrap(err, "counting bonafide requests")
}

func (repo *bonafideRepository) UpdateRequest(ctx context.Context, req bonafide.Request) (bonafide.Request, error) {
	const q = `
		UPDATE bonafide_request
		SET status = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $1`
	res, err := repo.ext.ExecContext(ctx, q,
		req.ID, string(req.Status), null.StringFromPtr(req.RejectionReason), req.UpdatedAt.UTC())
	if err != nil {
		return bonafide.Request{}, errors.Wrap(err, "updating bonafide request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return bonafide.Request{}, bonafide.ErrNotFound
	}
	return req, nil
}
