package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// SystemLogRepo appends audit rows to system_logs.
type SystemLogRepo struct {
	db *sql.DB
}

// NewSystemLogRepo returns a new SystemLogRepo bound to the given database.
func NewSystemLogRepo(db *sql.DB) *SystemLogRepo { return &SystemLogRepo{db: db} }

// CreateSystemLog inserts one audit entry.  Metadata is stored as JSON.
func (r *SystemLogRepo) CreateSystemLog(ctx context.Context, e *model.SystemLog) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return errors.Wrap(err, "encode log metadata")
		}
		meta = b
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO system_logs (level, action, message, user_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Level, e.Action, e.Message, e.UserID, meta, e.CreatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert system log")
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = uint64(id)
	}
	return nil
}
