package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,membership,total_savings,is_active,created_at,updated_at"

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u          model.User
		membership string
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &membership, &u.TotalSavings,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Membership = model.Membership(membership)
	return &u, nil
}

// CreateUser inserts u (whose PasswordHash is already set) and populates
// its ID.  A duplicate email yields ErrEmailExists.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Membership == "" {
		u.Membership = model.MembershipBasic
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, membership) VALUES (?,?,?,?)",
		u.Email, u.PasswordHash, u.Role, string(u.Membership))
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrEmailExists
		}
		return errors.Wrap(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "user id")
	}
	u.ID = uint64(id)
	u.IsActive = true
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user by email")
	}
	return u, nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	return u, nil
}

// UpdateUserSavings overwrites the user's running savings total.
func (r *UserRepo) UpdateUserSavings(ctx context.Context, id uint64, total float64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET total_savings=?, updated_at=UTC_TIMESTAMP() WHERE id=?", total, id)
	if err != nil {
		return errors.Wrapf(err, "update savings of user %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
