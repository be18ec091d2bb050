package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// DealRepo reads deals and applies the narrow set of writes the redemption
// flow needs: PIN rotation and the redemption counter.  General deal CRUD
// belongs to the vendor dashboard and is not handled here.
type DealRepo struct {
	db *sql.DB
}

// NewDealRepo returns a new DealRepo bound to the given database.
func NewDealRepo(db *sql.DB) *DealRepo { return &DealRepo{db: db} }

const dealColumns = `id, vendor_id, title, description, category, discount_percentage,
	original_price, discounted_price, valid_until, is_active, is_approved,
	max_redemptions, current_redemptions, required_membership, view_count,
	verification_pin, pin_salt, pin_created_at, pin_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(s rowScanner) (*model.Deal, error) {
	var (
		d            model.Deal
		original     sql.NullFloat64
		discounted   sql.NullFloat64
		maxRed       sql.NullInt64
		membership   string
		salt         sql.NullString
		pinCreatedAt sql.NullTime
		pinExpiresAt sql.NullTime
	)
	err := s.Scan(&d.ID, &d.VendorID, &d.Title, &d.Description, &d.Category, &d.DiscountPercentage,
		&original, &discounted, &d.ValidUntil, &d.IsActive, &d.IsApproved,
		&maxRed, &d.CurrentRedemptions, &membership, &d.ViewCount,
		&d.VerificationPin, &salt, &pinCreatedAt, &pinExpiresAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if original.Valid {
		d.OriginalPrice = &original.Float64
	}
	if discounted.Valid {
		d.DiscountedPrice = &discounted.Float64
	}
	if maxRed.Valid {
		m := int(maxRed.Int64)
		d.MaxRedemptions = &m
	}
	d.RequiredMembership = model.Membership(membership)
	if salt.Valid {
		d.PinSalt = &salt.String
	}
	if pinCreatedAt.Valid {
		d.PinCreatedAt = &pinCreatedAt.Time
	}
	if pinExpiresAt.Valid {
		d.PinExpiresAt = &pinExpiresAt.Time
	}
	return &d, nil
}

// GetDeal fetches a deal by id.  It returns ErrNotFound when no row exists.
func (r *DealRepo) GetDeal(ctx context.Context, id uint64) (*model.Deal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get deal %d", id)
	}
	return d, nil
}

// ListActiveDeals returns approved, active deals that have not expired at
// now, newest first.
func (r *DealRepo) ListActiveDeals(ctx context.Context, now time.Time) ([]model.Deal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dealColumns+` FROM deals
		 WHERE is_active = 1 AND is_approved = 1 AND valid_until > ?
		 ORDER BY created_at DESC`, now.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "list active deals")
	}
	defer rows.Close()
	var out []model.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan deal")
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate deals")
	}
	return out, nil
}

// UpdateDealPin replaces the PIN columns of a deal.
func (r *DealRepo) UpdateDealPin(ctx context.Context, id uint64, p model.DealPin) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deals SET verification_pin = ?, pin_salt = ?, pin_created_at = ?, pin_expires_at = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		p.VerificationPin, p.PinSalt, p.PinCreatedAt, p.PinExpiresAt, id)
	if err != nil {
		return errors.Wrapf(err, "update pin of deal %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementDealRedemptions atomically bumps current_redemptions unless the
// ceiling is already reached, and returns the new count.
func (r *DealRepo) IncrementDealRedemptions(ctx context.Context, id uint64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deals SET current_redemptions = current_redemptions + 1
		 WHERE id = ? AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)`, id)
	if err != nil {
		return 0, errors.Wrapf(err, "increment redemptions of deal %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	var count int
	err = r.db.QueryRowContext(ctx, `SELECT current_redemptions FROM deals WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "read redemptions")
	}
	if n == 0 {
		return count, ErrRedemptionLimit
	}
	return count, nil
}
