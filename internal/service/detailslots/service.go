package detailslots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	scheduleRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/schedule"
)

// Service считает загрузку 30-минутных подслотов поверх места в расписании
// Вместимость подслота не зависит от вместимости расписания
type Service struct {
	scheduleRepo     ScheduleRepository
	registrationRepo RegistrationRepository
	capacity         int
	logger           Logger
}

// NewService создает новый экземпляр сервиса подслотов
// capacity <= 0 заменяется значением по умолчанию
func NewService(
	scheduleRepo ScheduleRepository,
	registrationRepo RegistrationRepository,
	capacity int,
	logger Logger,
) *Service {
	if capacity <= 0 {
		capacity = domain.DefaultDetailSlotCapacity
	}

	return &Service{
		scheduleRepo:     scheduleRepo,
		registrationRepo: registrationRepo,
		capacity:         capacity,
		logger:           logger,
	}
}

// ListAvailability возвращает загрузку подслотов блока расписания в порядке sort order
// Для patientID == nil причина BOOKED не выставляется никогда
func (s *Service) ListAvailability(ctx context.Context, scheduleID int64, patientID *int64) ([]domain.DetailSlotAvailability, error) {
	schedule, err := s.getSchedule(ctx, "ListAvailability", scheduleID)
	if err != nil {
		return nil, err
	}

	counts, err := s.registrationRepo.CountActiveByDetailSlot(ctx, scheduleID)
	if err != nil {
		s.logger.Error("ListAvailability: failed to count bookings for schedule=%d: %v", scheduleID, err)
		return nil, fmt.Errorf("%w: ListAvailability - count bookings: %v", ErrInternal, err)
	}

	held := make(map[string]struct{})
	if patientID != nil {
		codes, err := s.registrationRepo.GetActiveDetailSlotCodes(ctx, scheduleID, *patientID)
		if err != nil {
			s.logger.Error("ListAvailability: failed to get patient=%d slots for schedule=%d: %v", *patientID, scheduleID, err)
			return nil, fmt.Errorf("%w: ListAvailability - patient slots: %v", ErrInternal, err)
		}
		for _, code := range codes {
			held[code] = struct{}{}
		}
	}

	slots := domain.DetailSlotsForPeriod(schedule.Period)
	result := make([]domain.DetailSlotAvailability, 0, len(slots))

	for _, slot := range slots {
		availability := domain.NewDetailSlotAvailability(slot, s.capacity, counts[slot.Code])
		if _, ok := held[slot.Code]; ok {
			availability.MarkBooked()
		}

		result = append(result, availability)
	}

	s.logger.Info("ListAvailability: schedule=%d period=%s slots=%d", scheduleID, schedule.Period, len(result))
	return result, nil
}

// ValidateChoice проверяет выбор подслота при создании записи
// Вызывается внутри транзакции резервирования, после блокировки строки расписания
func (s *Service) ValidateChoice(ctx context.Context, scheduleID, patientID int64, code string) (domain.DetailSlot, error) {
	slot, ok := domain.FindDetailSlot(code)
	if !ok {
		s.logger.Warn("ValidateChoice: unknown detail slot code=%s", code)
		return domain.DetailSlot{}, ErrUnknownDetailSlot
	}

	schedule, err := s.getSchedule(ctx, "ValidateChoice", scheduleID)
	if err != nil {
		return domain.DetailSlot{}, err
	}

	if slot.Period != schedule.Period {
		s.logger.Warn("ValidateChoice: slot=%s period=%s does not match schedule=%d period=%s",
			code, slot.Period, scheduleID, schedule.Period)
		return domain.DetailSlot{}, ErrDetailSlotPeriodMismatch
	}

	held, err := s.registrationRepo.GetActiveDetailSlotCodes(ctx, scheduleID, patientID)
	if err != nil {
		s.logger.Error("ValidateChoice: failed to get patient=%d slots: %v", patientID, err)
		return domain.DetailSlot{}, fmt.Errorf("%w: ValidateChoice - patient slots: %v", ErrInternal, err)
	}
	for _, h := range held {
		if h == code {
			s.logger.Warn("ValidateChoice: patient=%d already holds slot=%s in schedule=%d", patientID, code, scheduleID)
			return domain.DetailSlot{}, ErrDuplicateDetailSlotBooking
		}
	}

	counts, err := s.registrationRepo.CountActiveByDetailSlot(ctx, scheduleID)
	if err != nil {
		s.logger.Error("ValidateChoice: failed to count bookings for schedule=%d: %v", scheduleID, err)
		return domain.DetailSlot{}, fmt.Errorf("%w: ValidateChoice - count bookings: %v", ErrInternal, err)
	}
	if availability := domain.NewDetailSlotAvailability(slot, s.capacity, counts[code]); availability.IsFull() {
		s.logger.Warn("ValidateChoice: slot=%s in schedule=%d is full (%d/%d)", code, scheduleID, counts[code], s.capacity)
		return domain.DetailSlot{}, ErrDetailSlotFull
	}

	return slot, nil
}

func (s *Service) getSchedule(ctx context.Context, op string, scheduleID int64) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrScheduleNotFound) {
			s.logger.Warn("%s: schedule=%d not found", op, scheduleID)
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("%s: failed to get schedule=%d: %v", op, scheduleID, err)
		return nil, fmt.Errorf("%w: %s - get schedule: %v", ErrInternal, op, err)
	}
	return schedule, nil
}
