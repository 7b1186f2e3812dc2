package create_registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	registrationRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
	"github.com/m04kA/SMC-AppointmentService/internal/service/detailslots"
)

// MaxRegistrationNoAttempts количество попыток сгенерировать уникальный номер записи
const MaxRegistrationNoAttempts = 3

// UseCase use case для создания записи на приём
type UseCase struct {
	allocator        SeatAllocator
	detailSlots      DetailSlotValidator
	registrationRepo RegistrationRepository
	notifier         Notifier
	generator        RegistrationNoGenerator
	txManager        TransactionManager
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	allocator SeatAllocator,
	detailSlots DetailSlotValidator,
	registrationRepo RegistrationRepository,
	notifier Notifier,
	generator RegistrationNoGenerator,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		allocator:        allocator,
		detailSlots:      detailSlots,
		registrationRepo: registrationRepo,
		notifier:         notifier,
		generator:        generator,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute выполняет use case создания записи
// Резерв места, проверка подслота и вставка записи выполняются в одной транзакции:
// любой отказ откатывает уменьшение счётчика мест
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateRegistration: patient=%d, schedule=%d", req.PatientID, req.ScheduleID)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateRegistration: validation failed: %v", err)
		return nil, err
	}

	// 2. Транзакция; при коллизии номера записи повторяется целиком
	var (
		result *Response
		reg    *domain.Registration
		err    error
	)
	for attempt := 1; attempt <= MaxRegistrationNoAttempts; attempt++ {
		reg, result, err = uc.create(ctx, req)
		if !errors.Is(err, registrationRepo.ErrDuplicateRegistrationNo) {
			break
		}
		uc.logger.Warn("CreateRegistration: registration number collision, attempt %d/%d", attempt, MaxRegistrationNoAttempts)
	}
	if err != nil {
		if errors.Is(err, registrationRepo.ErrDuplicateRegistrationNo) {
			uc.logger.Error("CreateRegistration: failed to generate unique registration number for patient=%d", req.PatientID)
			return nil, ErrDuplicateRegistrationNo
		}
		return nil, err
	}

	// 3. Уведомление после коммита
	uc.notifier.RegistrationCreated(ctx, reg)

	uc.logger.Info("CreateRegistration: created registration id=%d no=%s queue=%d",
		result.ID, result.RegistrationNo, result.QueueNumber)
	return result, nil
}

func (uc *UseCase) create(ctx context.Context, req *Request) (*domain.Registration, *Response, error) {
	now := uc.timeProvider.Now()

	var (
		created *domain.Registration
		result  *Response
	)

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		// 2.1. Резерв места; ошибки распределителя пробрасываются без изменений
		reservation, err := uc.allocator.ReserveSeat(txCtx, req.ScheduleID)
		if err != nil {
			uc.logger.Warn("CreateRegistration: failed to reserve seat in schedule=%d: %v", req.ScheduleID, err)
			return err
		}

		// 2.2. Проверка подслота под блокировкой строки расписания
		var slot *domain.DetailSlot
		if req.DetailSlotCode != nil {
			chosen, err := uc.detailSlots.ValidateChoice(txCtx, req.ScheduleID, req.PatientID, *req.DetailSlotCode)
			if err != nil {
				uc.logger.Warn("CreateRegistration: detail slot %s rejected: %v", *req.DetailSlotCode, err)
				return err
			}
			slot = &chosen
		}

		// 2.3. Вставка записи
		reg := &domain.Registration{
			RegistrationNo: uc.generator.Generate(now),
			PatientID:      req.PatientID,
			DoctorID:       reservation.Schedule.DoctorID,
			ScheduleID:     req.ScheduleID,
			QueueNumber:    reservation.QueueNumber,
			DetailSlotCode: req.DetailSlotCode,
			Symptom:        req.Symptom,
			Fee:            reservation.Schedule.Fee,
			Status:         domain.RegistrationPending,
			PaymentStatus:  domain.PaymentPending,
		}

		created, err = uc.registrationRepo.Create(txCtx, reg)
		if err != nil {
			switch {
			case errors.Is(err, registrationRepo.ErrDuplicateRegistrationNo):
				return err
			case errors.Is(err, registrationRepo.ErrDuplicateDetailSlot):
				return detailslots.ErrDuplicateDetailSlotBooking
			default:
				uc.logger.Error("CreateRegistration: failed to create registration: %v", err)
				return fmt.Errorf("%w: failed to create registration: %v", ErrInternal, err)
			}
		}

		result = newResponse(created, reservation.Schedule, slot, reservation.RemainingSeats)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return created, result, nil
}
