package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// defaultAttemptLimit bounds how much history a rate-limit check reads.
const defaultAttemptLimit = 100

// PinAttemptRepo appends to and reads the pin_attempts log.  Rows are
// never updated or deleted by the application.
type PinAttemptRepo struct {
	db *sql.DB
}

// NewPinAttemptRepo returns a new PinAttemptRepo bound to the given database.
func NewPinAttemptRepo(db *sql.DB) *PinAttemptRepo { return &PinAttemptRepo{db: db} }

// RecordPinAttempt appends one attempt.
func (r *PinAttemptRepo) RecordPinAttempt(ctx context.Context, a *model.PinAttempt) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pin_attempts (deal_id, user_id, ip_address, user_agent, success, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.DealID, a.UserID, a.IPAddress, a.UserAgent, a.Success, a.AttemptedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert pin attempt")
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = uint64(id)
	}
	return nil
}

// GetPinAttempts returns attempts for a deal, newest first, narrowed by the
// optional user, IP and lower time bound of the filter.
func (r *PinAttemptRepo) GetPinAttempts(ctx context.Context, f model.PinAttemptFilter) ([]model.PinAttempt, error) {
	where := []string{"deal_id = ?"}
	args := []any{f.DealID}
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.IPAddress != "" {
		where = append(where, "ip_address = ?")
		args = append(args, f.IPAddress)
	}
	if !f.Since.IsZero() {
		where = append(where, "attempted_at > ?")
		args = append(args, f.Since.UTC())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultAttemptLimit
	}
	args = append(args, limit)

	q := `SELECT id, deal_id, user_id, ip_address, user_agent, success, attempted_at
	      FROM pin_attempts WHERE ` + strings.Join(where, " AND ") + `
	      ORDER BY attempted_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list pin attempts of deal %d", f.DealID)
	}
	defer rows.Close()
	var out []model.PinAttempt
	for rows.Next() {
		var (
			a      model.PinAttempt
			userID sql.NullInt64
			ua     sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.DealID, &userID, &a.IPAddress, &ua, &a.Success, &a.AttemptedAt); err != nil {
			return nil, errors.Wrap(err, "scan pin attempt")
		}
		if userID.Valid {
			u := uint64(userID.Int64)
			a.UserID = &u
		}
		a.UserAgent = ua.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate pin attempts")
	}
	return out, nil
}
