package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// RedemptionRepo applies the multi-row writes of the redemption flow
// inside one transaction each: the redemption counter together with the
// verified claim, and the billed claim together with the user's savings
// total.
type RedemptionRepo struct {
	db *sql.DB
}

// NewRedemptionRepo returns a new RedemptionRepo bound to the given database.
func NewRedemptionRepo(db *sql.DB) *RedemptionRepo { return &RedemptionRepo{db: db} }

// replaceSavings swaps previous for savings in total, rounded to cents.
func replaceSavings(total, previous, savings float64) float64 {
	return decimal.NewFromFloat(total).
		Sub(decimal.NewFromFloat(previous)).
		Add(decimal.NewFromFloat(savings)).
		Round(2).InexactFloat64()
}

// RedeemClaim writes c as verified.  A zero c.ID inserts a new claim.
// When countRedemption is set the deal's counter is bumped in the same
// transaction; ErrRedemptionLimit leaves every row untouched.  It returns
// the deal's redemption count after the write.
func (r *RedemptionRepo) RedeemClaim(ctx context.Context, c *model.DealClaim, countRedemption bool) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin redeem")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if countRedemption {
		res, err := tx.ExecContext(ctx,
			`UPDATE deals SET current_redemptions = current_redemptions + 1
			 WHERE id = ? AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)`, c.DealID)
		if err != nil {
			return 0, errors.Wrapf(err, "increment redemptions of deal %d", c.DealID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM deals WHERE id = ?`, c.DealID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrNotFound
			}
			if err != nil {
				return 0, errors.Wrap(err, "check deal")
			}
			return 0, ErrRedemptionLimit
		}
	}

	id := c.ID
	if id == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO deal_claims (user_id, deal_id, status, claimed_at, verified_at, savings_amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.UserID, c.DealID, c.Status, c.ClaimedAt.UTC(), c.VerifiedAt, c.SavingsAmount)
		if err != nil {
			return 0, errors.Wrap(err, "insert claim")
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return 0, errors.Wrap(err, "claim id")
		}
		id = uint64(lastID)
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE deal_claims SET status = ?, verified_at = ?, savings_amount = ? WHERE id = ?`,
			c.Status, c.VerifiedAt, c.SavingsAmount, id)
		if err != nil {
			return 0, errors.Wrapf(err, "update claim %d", id)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM deal_claims WHERE id = ?`, id).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrNotFound
			}
			if err != nil {
				return 0, errors.Wrap(err, "check claim")
			}
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT current_redemptions FROM deals WHERE id = ?`, c.DealID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "read redemptions")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit redeem")
	}
	committed = true
	c.ID = id
	return count, nil
}

// FinalizeClaim records the bill of c and moves the owner's savings total
// from the claim's stored actual_savings to c.ActualSavings, both in one
// transaction.  It returns the new total.
func (r *RedemptionRepo) FinalizeClaim(ctx context.Context, c *model.DealClaim) (float64, error) {
	if c.ActualSavings == nil {
		return 0, errors.New("finalize claim without savings")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin finalize")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var previous sql.NullFloat64
	err = tx.QueryRowContext(ctx,
		`SELECT actual_savings FROM deal_claims WHERE id = ? FOR UPDATE`, c.ID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "lock claim %d", c.ID)
	}
	var total float64
	err = tx.QueryRowContext(ctx,
		`SELECT total_savings FROM users WHERE id = ? FOR UPDATE`, c.UserID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "lock user %d", c.UserID)
	}
	newTotal := replaceSavings(total, previous.Float64, *c.ActualSavings)

	if _, err := tx.ExecContext(ctx,
		`UPDATE deal_claims SET status = ?, used_at = ?, bill_amount = ?, actual_savings = ? WHERE id = ?`,
		c.Status, c.UsedAt, c.BillAmount, c.ActualSavings, c.ID); err != nil {
		return 0, errors.Wrapf(err, "update claim %d", c.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET total_savings = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		newTotal, c.UserID); err != nil {
		return 0, errors.Wrapf(err, "update savings of user %d", c.UserID)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit finalize")
	}
	committed = true
	return newTotal, nil
}
