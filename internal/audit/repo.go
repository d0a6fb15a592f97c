package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/pagination"
)

// Repository manages persistence for the append-only audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID, params pagination.Params) ([]models.AuditEntry, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID, params pagination.Params) ([]models.AuditEntry, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	q := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.AuditEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(entries) == limit {
		last := entries[limit-2]
		entries = entries[:limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, next, nil
}
