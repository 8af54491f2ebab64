package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

type sqliteShipmentRepo struct {
	db database.TxQuerier
}

func NewSQLiteShipmentRepo(db database.TxQuerier) ShipmentRepository {
	return &sqliteShipmentRepo{db: db}
}

func (r *sqliteShipmentRepo) Create(ctx context.Context, s *models.Shipment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shipments (order_id, carrier, tracking_number, status)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		s.OrderID, s.Carrier, s.TrackingNumber, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order already has a shipment", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create shipment: %w", err)
	}
	return nil
}

func (r *sqliteShipmentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.Shipment, error) {
	return r.getOne(ctx, `WHERE order_id = ?`, orderID)
}

func (r *sqliteShipmentRepo) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *sqliteShipmentRepo) getOne(ctx context.Context, where, arg string) (*models.Shipment, error) {
	s := &models.Shipment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, carrier, tracking_number, status, created_at, updated_at
		FROM shipments `+where, arg,
	).Scan(&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shipment_id, status, location, note, created_at
		FROM tracking_events WHERE shipment_id = ?
		ORDER BY created_at, rowid`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracking events: %w", err)
	}
	defer rows.Close()

	s.Events = []models.TrackingEvent{}
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(&e.ID, &e.ShipmentID, &e.Status, &e.Location, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracking event: %w", err)
		}
		s.Events = append(s.Events, e)
	}
	return s, rows.Err()
}

func (r *sqliteShipmentRepo) UpdateStatus(ctx context.Context, id string, status models.ShipmentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shipments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteShipmentRepo) AddEvent(ctx context.Context, e *models.TrackingEvent) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tracking_events (shipment_id, status, location, note)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at`,
		e.ShipmentID, e.Status, e.Location, e.Note,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add tracking event: %w", err)
	}
	return nil
}
