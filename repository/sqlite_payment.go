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

type sqlitePaymentRepo struct {
	db database.TxQuerier
}

func NewSQLitePaymentRepo(db database.TxQuerier) PaymentRepository {
	return &sqlitePaymentRepo{db: db}
}

const paymentColumns = `id, order_id, method, status, amount_cents, currency, card_last4,
	provider_ref, failure_reason, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.AmountCents, &p.Currency, &p.CardLast4,
		&p.ProviderRef, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create: ProviderRef caller tarafından (gerekirse şifrelenmiş olarak) verilir.
func (r *sqlitePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, method, status, amount_cents, currency, card_last4, provider_ref, failure_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		p.OrderID, p.Method, p.Status, p.AmountCents, p.Currency, p.CardLast4, p.ProviderRef, p.FailureReason,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *sqlitePaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? ORDER BY created_at, rowid`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *sqlitePaymentRepo) LatestSucceeded(ctx context.Context, orderID string) (*models.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = ? AND status = 'succeeded'
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (r *sqlitePaymentRepo) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return fmt.Errorf("%w: payment is no longer %s", pkg.ErrConflict, from)
	}
	return nil
}
