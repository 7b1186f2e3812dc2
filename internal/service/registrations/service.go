package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	registrationRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations/models"
)

// Service сервис чтения записей и переходов, не затрагивающих места и деньги
type Service struct {
	registrationRepo RegistrationRepository
	txManager        TransactionManager
	timeProvider     TimeProvider
	logger           Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	registrationRepo RegistrationRepository,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		registrationRepo: registrationRepo,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// GetByID получает запись по ID
// Пациент может видеть только свою запись
func (s *Service) GetByID(ctx context.Context, id int64, patientID int64) (*models.RegistrationResponse, error) {
	s.logger.Info("GetByID: fetching registration id=%d for patient=%d", id, patientID)

	reg, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, registrationRepo.ErrRegistrationNotFound) {
			s.logger.Warn("GetByID: registration id=%d not found", id)
			return nil, ErrRegistrationNotFound
		}
		s.logger.Error("GetByID: repository error for registration id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if reg.PatientID != patientID {
		s.logger.Warn("GetByID: access denied for patient=%d to registration id=%d", patientID, id)
		return nil, ErrAccessDenied
	}

	return models.FromDomainRegistration(reg), nil
}

// GetPatientRegistrations получает историю записей пациента
// Опционально фильтрует по статусу
func (s *Service) GetPatientRegistrations(ctx context.Context, req *models.GetPatientRegistrationsRequest) (*models.RegistrationListResponse, error) {
	s.logger.Info("GetPatientRegistrations: fetching registrations for patient=%d, status=%v", req.PatientID, req.Status)

	var domainStatus *domain.RegistrationStatus
	if req.Status != nil {
		status, err := models.ToDomainRegistrationStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetPatientRegistrations: invalid status=%s for patient=%d", *req.Status, req.PatientID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &status
	}

	list, err := s.registrationRepo.GetByPatientID(ctx, req.PatientID, domainStatus)
	if err != nil {
		s.logger.Error("GetPatientRegistrations: repository error for patient=%d: %v", req.PatientID, err)
		return nil, fmt.Errorf("%w: GetPatientRegistrations - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetPatientRegistrations: fetched %d registrations for patient=%d", len(list), req.PatientID)
	return models.FromDomainRegistrationList(list), nil
}

// ConfirmRegistration переводит pending запись в confirmed
func (s *Service) ConfirmRegistration(ctx context.Context, id int64) (*models.RegistrationResponse, error) {
	return s.transition(ctx, "ConfirmRegistration", id, func(reg *domain.Registration, now time.Time) error {
		return reg.Confirm(now)
	})
}

// CheckIn отмечает приход пациента; после этого запись нельзя отменить
func (s *Service) CheckIn(ctx context.Context, id int64) (*models.RegistrationResponse, error) {
	return s.transition(ctx, "CheckIn", id, func(reg *domain.Registration, now time.Time) error {
		return reg.CheckIn(now)
	})
}

// CompleteRegistration завершает приём с необязательной записью врача
func (s *Service) CompleteRegistration(ctx context.Context, id int64, visitRecord *string) (*models.RegistrationResponse, error) {
	if visitRecord != nil && utf8.RuneCountInString(*visitRecord) > domain.MaxVisitRecordLength {
		s.logger.Warn("CompleteRegistration: visit record too long for registration id=%d", id)
		return nil, fmt.Errorf("%w: visit record exceeds %d characters", ErrInvalidInput, domain.MaxVisitRecordLength)
	}

	return s.transition(ctx, "CompleteRegistration", id, func(reg *domain.Registration, now time.Time) error {
		return reg.Complete(now, visitRecord)
	})
}

// transition блокирует запись, применяет переход из таблицы и сохраняет его условным обновлением
// Ошибки переходов (domain.ErrAlreadyCancelled и т.д.) возвращаются без обёртки
func (s *Service) transition(
	ctx context.Context,
	op string,
	id int64,
	apply func(reg *domain.Registration, now time.Time) error,
) (*models.RegistrationResponse, error) {
	s.logger.Info("%s: registration id=%d", op, id)

	now := s.timeProvider.Now()
	var result *domain.Registration

	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		reg, err := s.registrationRepo.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, registrationRepo.ErrRegistrationNotFound) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("%w: %s - get registration: %v", ErrInternal, op, err)
		}

		expected := reg.State()
		if err := apply(reg, now); err != nil {
			return err
		}

		if err := s.registrationRepo.UpdateState(txCtx, reg, expected); err != nil {
			return fmt.Errorf("%w: %s - update state: %v", ErrInternal, op, err)
		}

		result = reg
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInternal) {
			s.logger.Error("%s: registration id=%d: %v", op, id, err)
		} else {
			s.logger.Warn("%s: registration id=%d rejected: %v", op, id, err)
		}
		return nil, err
	}

	s.logger.Info("%s: registration id=%d status=%s", op, id, result.Status)
	return models.FromDomainRegistration(result), nil
}
