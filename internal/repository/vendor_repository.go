package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// VendorRepo reads vendor profiles.  Vendors without coordinates are
// returned with nil Latitude/Longitude.
type VendorRepo struct {
	db *sql.DB
}

// NewVendorRepo returns a new VendorRepo bound to the given database.
func NewVendorRepo(db *sql.DB) *VendorRepo { return &VendorRepo{db: db} }

const vendorColumns = "id, user_id, business_name, address, latitude, longitude, is_approved, created_at"

func scanVendor(s rowScanner) (*model.Vendor, error) {
	var (
		v        model.Vendor
		address  sql.NullString
		lat, lon sql.NullFloat64
	)
	if err := s.Scan(&v.ID, &v.UserID, &v.BusinessName, &address, &lat, &lon, &v.IsApproved, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Address = address.String
	if lat.Valid && lon.Valid {
		v.Latitude, v.Longitude = &lat.Float64, &lon.Float64
	}
	return &v, nil
}

// GetVendorByUser fetches the vendor profile owned by a user account.
func (r *VendorRepo) GetVendorByUser(ctx context.Context, userID uint64) (*model.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx,
		"SELECT "+vendorColumns+" FROM vendors WHERE user_id = ? LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get vendor of user %d", userID)
	}
	return v, nil
}

// ListVendors returns approved vendors.
func (r *VendorRepo) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+vendorColumns+" FROM vendors WHERE is_approved = 1 ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "list vendors")
	}
	defer rows.Close()
	var out []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan vendor")
		}
		out = append(out, *v)
	}
	return out, errors.Wrap(rows.Err(), "iterate vendors")
}
