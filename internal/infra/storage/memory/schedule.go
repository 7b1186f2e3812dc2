package memory

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/schedule"
)

// ScheduleRepository повторяет поведение schedule.Repository, включая его ошибки
type ScheduleRepository struct {
	store *Store
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	var result *domain.Schedule

	err := r.store.run(ctx, func() error {
		s, ok := r.store.schedules[id]
		if !ok || s.IsDeleted() {
			return schedule.ErrScheduleNotFound
		}
		out := *s
		result = &out
		return nil
	})

	return result, err
}

func (r *ScheduleRepository) DecrementRemainingSeats(ctx context.Context, id int64, today time.Time) (int, error) {
	var remaining int

	err := r.store.run(ctx, func() error {
		s, ok := r.store.schedules[id]
		if !ok || s.IsDeleted() ||
			s.Status != domain.ScheduleBookable ||
			s.RemainingSeats <= 0 ||
			s.ScheduleDate.Before(domain.CalendarDate(today)) {
			return schedule.ErrNoSeatReserved
		}

		s.RemainingSeats--
		if s.RemainingSeats == 0 {
			s.Status = domain.ScheduleFull
		}
		s.UpdatedAt = r.store.now()
		remaining = s.RemainingSeats
		return nil
	})

	return remaining, err
}

func (r *ScheduleRepository) IncrementRemainingSeats(ctx context.Context, id int64) error {
	return r.store.run(ctx, func() error {
		s, ok := r.store.schedules[id]
		if !ok || s.IsDeleted() {
			return schedule.ErrScheduleNotFound
		}

		if s.RemainingSeats < s.TotalSeats {
			s.RemainingSeats++
		}
		if s.Status == domain.ScheduleFull {
			s.Status = domain.ScheduleBookable
		}
		s.UpdatedAt = r.store.now()
		return nil
	})
}
