package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// ClaimRepo persists deal_claims rows.  All timestamps are stored in UTC.
type ClaimRepo struct {
	db *sql.DB
}

// NewClaimRepo returns a new ClaimRepo bound to the given database.
func NewClaimRepo(db *sql.DB) *ClaimRepo { return &ClaimRepo{db: db} }

// GetUserClaims returns every claim of a user, newest first.
func (r *ClaimRepo) GetUserClaims(ctx context.Context, userID uint64) ([]model.DealClaim, error) {
	const q = `SELECT id, user_id, deal_id, status, claimed_at, verified_at, used_at,
	                  savings_amount, bill_amount, actual_savings
	           FROM deal_claims WHERE user_id = ?
	           ORDER BY claimed_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list claims of user %d", userID)
	}
	defer rows.Close()
	var out []model.DealClaim
	for rows.Next() {
		var (
			c          model.DealClaim
			verifiedAt sql.NullTime
			usedAt     sql.NullTime
			bill       sql.NullFloat64
			actual     sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.DealID, &c.Status, &c.ClaimedAt, &verifiedAt, &usedAt,
			&c.SavingsAmount, &bill, &actual); err != nil {
			return nil, errors.Wrap(err, "scan claim")
		}
		if verifiedAt.Valid {
			c.VerifiedAt = &verifiedAt.Time
		}
		if usedAt.Valid {
			c.UsedAt = &usedAt.Time
		}
		if bill.Valid {
			c.BillAmount = &bill.Float64
		}
		if actual.Valid {
			c.ActualSavings = &actual.Float64
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate claims")
	}
	return out, nil
}

// CreateClaim inserts a claim and populates its generated ID.
func (r *ClaimRepo) CreateClaim(ctx context.Context, c *model.DealClaim) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO deal_claims (user_id, deal_id, status, claimed_at, verified_at, savings_amount)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.DealID, c.Status, c.ClaimedAt.UTC(), c.VerifiedAt, c.SavingsAmount)
	if err != nil {
		return errors.Wrap(err, "insert claim")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "claim id")
	}
	c.ID = uint64(id)
	return nil
}

// UpdateClaim writes the mutable columns of a claim.
func (r *ClaimRepo) UpdateClaim(ctx context.Context, c *model.DealClaim) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deal_claims
		 SET status = ?, verified_at = ?, used_at = ?, savings_amount = ?, bill_amount = ?, actual_savings = ?
		 WHERE id = ?`,
		c.Status, c.VerifiedAt, c.UsedAt, c.SavingsAmount, c.BillAmount, c.ActualSavings, c.ID)
	if err != nil {
		return errors.Wrapf(err, "update claim %d", c.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 rows when values are unchanged; confirm existence.
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM deal_claims WHERE id = ?`, c.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "check claim")
		}
	}
	return nil
}
