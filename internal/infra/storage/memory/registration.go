package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
)

// RegistrationRepository повторяет поведение registration.Repository, включая уникальные ограничения
type RegistrationRepository struct {
	store *Store
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	err := r.store.run(ctx, func() error {
		for _, existing := range r.store.registrations {
			if existing.RegistrationNo == reg.RegistrationNo {
				return registration.ErrDuplicateRegistrationNo
			}
			if existing.ScheduleID == reg.ScheduleID && existing.QueueNumber == reg.QueueNumber {
				return registration.ErrDuplicateQueueNumber
			}
			if reg.DetailSlotCode != nil &&
				existing.ScheduleID == reg.ScheduleID &&
				existing.PatientID == reg.PatientID &&
				existing.HoldsDetailSlot(*reg.DetailSlotCode) {
				return registration.ErrDuplicateDetailSlot
			}
		}

		r.store.lastRegistrationID++
		now := r.store.now()
		reg.ID = r.store.lastRegistrationID
		reg.CreatedAt = now
		reg.UpdatedAt = now

		stored := *reg
		r.store.registrations[reg.ID] = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func (r *RegistrationRepository) NextQueueNumber(ctx context.Context, scheduleID int64) (int, error) {
	next := 1

	err := r.store.run(ctx, func() error {
		for _, reg := range r.store.registrations {
			if reg.ScheduleID == scheduleID && reg.QueueNumber >= next {
				next = reg.QueueNumber + 1
			}
		}
		return nil
	})

	return next, err
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	var result *domain.Registration

	err := r.store.run(ctx, func() error {
		reg, ok := r.store.registrations[id]
		if !ok || reg.DeletedAt != nil {
			return registration.ErrRegistrationNotFound
		}
		out := *reg
		result = &out
		return nil
	})

	return result, err
}

func (r *RegistrationRepository) GetByPatientID(ctx context.Context, patientID int64, status *domain.RegistrationStatus) ([]*domain.Registration, error) {
	result := make([]*domain.Registration, 0)

	err := r.store.run(ctx, func() error {
		for _, reg := range r.store.registrations {
			if reg.PatientID != patientID || reg.DeletedAt != nil {
				continue
			}
			if status != nil && reg.Status != *status {
				continue
			}
			out := *reg
			result = append(result, &out)
		}
		return nil
	})

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, err
}

func (r *RegistrationRepository) CountActiveByDetailSlot(ctx context.Context, scheduleID int64) (map[string]int, error) {
	counts := make(map[string]int)

	err := r.store.run(ctx, func() error {
		for _, reg := range r.store.registrations {
			if reg.ScheduleID != scheduleID || reg.DetailSlotCode == nil || reg.DeletedAt != nil || !reg.OccupiesSeat() {
				continue
			}
			counts[*reg.DetailSlotCode]++
		}
		return nil
	})

	return counts, err
}

func (r *RegistrationRepository) GetActiveDetailSlotCodes(ctx context.Context, scheduleID, patientID int64) ([]string, error) {
	codes := make([]string, 0)

	err := r.store.run(ctx, func() error {
		seen := make(map[string]struct{})
		for _, reg := range r.store.registrations {
			if reg.ScheduleID != scheduleID || reg.PatientID != patientID ||
				reg.DetailSlotCode == nil || reg.DeletedAt != nil || !reg.OccupiesSeat() {
				continue
			}
			if _, ok := seen[*reg.DetailSlotCode]; ok {
				continue
			}
			seen[*reg.DetailSlotCode] = struct{}{}
			codes = append(codes, *reg.DetailSlotCode)
		}
		return nil
	})

	sort.Strings(codes)

	return codes, err
}

func (r *RegistrationRepository) UpdateState(ctx context.Context, reg *domain.Registration, expected domain.RegistrationState) error {
	return r.store.run(ctx, func() error {
		stored, ok := r.store.registrations[reg.ID]
		if !ok || stored.DeletedAt != nil || stored.State() != expected {
			return registration.ErrStateConflict
		}

		stored.Status = reg.Status
		stored.PaymentStatus = reg.PaymentStatus
		stored.PaidAt = reg.PaidAt
		stored.RefundedAt = reg.RefundedAt
		stored.CancelledAt = reg.CancelledAt
		stored.CheckedInAt = reg.CheckedInAt
		stored.CompletedAt = reg.CompletedAt
		stored.VisitRecord = reg.VisitRecord
		stored.UpdatedAt = r.store.now()
		return nil
	})
}

func (r *RegistrationRepository) MarkRefundPublished(ctx context.Context, id int64, at time.Time) error {
	return r.store.run(ctx, func() error {
		stored, ok := r.store.registrations[id]
		if !ok {
			return registration.ErrRegistrationNotFound
		}
		stored.RefundPublishedAt = &at
		return nil
	})
}

func (r *RegistrationRepository) GetUnpublishedRefunds(ctx context.Context, before time.Time, limit int) ([]*domain.Registration, error) {
	result := make([]*domain.Registration, 0)

	err := r.store.run(ctx, func() error {
		for _, reg := range r.store.registrations {
			if reg.PaymentStatus != domain.PaymentRefunding || reg.RefundPublishedAt != nil ||
				reg.DeletedAt != nil || !reg.UpdatedAt.Before(before) {
				continue
			}
			out := *reg
			result = append(result, &out)
		}
		return nil
	})

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, err
}
