package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	scheduleRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/schedule"
)

// Reservation результат резервирования места
type Reservation struct {
	Schedule       *domain.Schedule
	QueueNumber    int
	RemainingSeats int
}

// Service распределяет места расписания врача
// Счётчик уменьшается только условным UPDATE в репозитории, сервис лишь классифицирует отказ
type Service struct {
	scheduleRepo     ScheduleRepository
	registrationRepo RegistrationRepository
	txManager        TransactionManager
	metrics          Metrics
	timeProvider     TimeProvider
	logger           Logger
}

// NewService создает новый экземпляр сервиса резервирования мест
func NewService(
	scheduleRepo ScheduleRepository,
	registrationRepo RegistrationRepository,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
) *Service {
	if metrics == nil {
		metrics = discardMetrics{}
	}

	return &Service{
		scheduleRepo:     scheduleRepo,
		registrationRepo: registrationRepo,
		txManager:        txManager,
		metrics:          metrics,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// ReserveSeat забирает одно место расписания и выдаёт номер очереди
// Выполняется в транзакции вызывающего, если она есть в контексте; иначе открывает свою.
// Номер очереди читается после блокировки строки расписания, поэтому конкурентные вызовы получают номера без пропусков.
func (s *Service) ReserveSeat(ctx context.Context, scheduleID int64) (*Reservation, error) {
	now := s.timeProvider.Now()

	var result *Reservation

	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		remaining, err := s.scheduleRepo.DecrementRemainingSeats(txCtx, scheduleID, now)
		if err != nil {
			if errors.Is(err, scheduleRepo.ErrNoSeatReserved) {
				return s.classifyRejection(txCtx, scheduleID)
			}
			s.logger.Error("ReserveSeat: failed to decrement seats for schedule=%d: %v", scheduleID, err)
			return fmt.Errorf("%w: ReserveSeat - decrement seats: %v", ErrInternal, err)
		}

		queueNumber, err := s.registrationRepo.NextQueueNumber(txCtx, scheduleID)
		if err != nil {
			s.logger.Error("ReserveSeat: failed to get next queue number for schedule=%d: %v", scheduleID, err)
			return fmt.Errorf("%w: ReserveSeat - next queue number: %v", ErrInternal, err)
		}

		schedule, err := s.scheduleRepo.GetByID(txCtx, scheduleID)
		if err != nil {
			s.logger.Error("ReserveSeat: failed to reload schedule=%d: %v", scheduleID, err)
			return fmt.Errorf("%w: ReserveSeat - reload schedule: %v", ErrInternal, err)
		}

		result = &Reservation{
			Schedule:       schedule,
			QueueNumber:    queueNumber,
			RemainingSeats: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SeatReserved()
	s.logger.Info("ReserveSeat: schedule=%d queue=%d remaining=%d", scheduleID, result.QueueNumber, result.RemainingSeats)

	return result, nil
}

// ReleaseSeat возвращает одно место расписания
// Идемпотентность обеспечивает вызывающий: место освобождается только при переходе записи в cancelled
func (s *Service) ReleaseSeat(ctx context.Context, scheduleID int64) error {
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		return s.scheduleRepo.IncrementRemainingSeats(txCtx, scheduleID)
	})
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrScheduleNotFound) {
			s.logger.Warn("ReleaseSeat: schedule=%d not found", scheduleID)
			return ErrScheduleNotFound
		}
		s.logger.Error("ReleaseSeat: failed to release seat for schedule=%d: %v", scheduleID, err)
		return fmt.Errorf("%w: ReleaseSeat - increment seats: %v", ErrInternal, err)
	}

	s.metrics.SeatReleased()
	s.logger.Info("ReleaseSeat: schedule=%d seat released", scheduleID)

	return nil
}

// classifyRejection перечитывает расписание только чтобы назвать причину отказа
// Порядок проверок: не найдено, отменено, прошло, заполнено
func (s *Service) classifyRejection(ctx context.Context, scheduleID int64) error {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrScheduleNotFound) {
			s.reject(scheduleID, reasonNotFound)
			return ErrScheduleNotFound
		}
		s.logger.Error("ReserveSeat: failed to classify rejection for schedule=%d: %v", scheduleID, err)
		return fmt.Errorf("%w: ReserveSeat - read schedule: %v", ErrInternal, err)
	}

	switch {
	case schedule.Status == domain.ScheduleCancelled:
		s.reject(scheduleID, reasonNotBookable)
		return ErrScheduleNotBookable
	case schedule.IsExpired(s.timeProvider.Now()):
		s.reject(scheduleID, reasonExpired)
		return ErrScheduleExpired
	default:
		// remaining_seats = 0 либо гонка с последним местом
		s.reject(scheduleID, reasonFull)
		return ErrScheduleFull
	}
}

type discardMetrics struct{}

func (discardMetrics) SeatReserved() {}
func (discardMetrics) SeatReleased() {}
func (discardMetrics) ReservationRejected(string) {}

func (s *Service) reject(scheduleID int64, reason string) {
	s.metrics.ReservationRejected(reason)
	s.logger.Warn("ReserveSeat: schedule=%d rejected, reason=%s", scheduleID, reason)
}
