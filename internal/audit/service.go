package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/pagination"
	"github.com/miguelsantiago/turista-backend/pkg/types"
)

// Service defines operations that record and read the order audit trail.
type Service interface {
	Append(ctx context.Context, entry Entry) (*models.AuditEntry, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*TrailPage, error)
}

// Entry captures the immutable data an audit record requires.
type Entry struct {
	OrderID    uuid.UUID
	EventType  enums.AuditEventType
	FromStatus *enums.OrderStatus
	ToStatus   *enums.OrderStatus
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
	Detail     types.JSONMap
}

// TrailPage wraps one page of the trail plus the next cursor.
type TrailPage struct {
	Entries    []models.AuditEntry `json:"entries"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, entry Entry) (*models.AuditEntry, error) {
	if entry.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if entry.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if !entry.EventType.IsValid() {
		return nil, fmt.Errorf("invalid audit event type %q", entry.EventType)
	}
	if !entry.ActorRole.IsValid() {
		return nil, fmt.Errorf("invalid actor role %q", entry.ActorRole)
	}

	record := &models.AuditEntry{
		OrderID:    entry.OrderID,
		EventType:  entry.EventType,
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Detail:     entry.Detail,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*TrailPage, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	entries, next, err := s.repo.ListByOrderID(ctx, orderID, params)
	if err != nil {
		return nil, err
	}
	return &TrailPage{Entries: entries, NextCursor: next}, nil
}
