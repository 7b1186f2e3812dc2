package memory

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
)

// PaymentRepository повторяет поведение payment.Repository
type PaymentRepository struct {
	store *Store
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	err := r.store.run(ctx, func() error {
		if _, ok := r.store.payments[p.RegistrationID]; ok {
			return payment.ErrDuplicatePayment
		}
		for _, existing := range r.store.payments {
			if existing.TransactionNo == p.TransactionNo {
				return payment.ErrDuplicatePayment
			}
		}

		r.store.lastPaymentID++
		now := r.store.now()
		p.ID = r.store.lastPaymentID
		p.CreatedAt = now
		p.UpdatedAt = now

		stored := *p
		r.store.payments[p.RegistrationID] = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (r *PaymentRepository) GetByRegistrationID(ctx context.Context, registrationID int64) (*domain.Payment, error) {
	var result *domain.Payment

	err := r.store.run(ctx, func() error {
		p, ok := r.store.payments[registrationID]
		if !ok {
			return payment.ErrPaymentNotFound
		}
		out := *p
		result = &out
		return nil
	})

	return result, err
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, registrationID int64, from, to domain.PaymentStatus, at time.Time) error {
	return r.store.run(ctx, func() error {
		p, ok := r.store.payments[registrationID]
		if !ok || p.Status != from {
			return payment.ErrStateConflict
		}

		p.Status = to
		p.UpdatedAt = at
		if to == domain.PaymentRefunded {
			p.RefundedAt = &at
		}
		return nil
	})
}
