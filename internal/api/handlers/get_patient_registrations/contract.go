package get_patient_registrations

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations/models"
)

type RegistrationService interface {
	GetPatientRegistrations(ctx context.Context, req *models.GetPatientRegistrationsRequest) (*models.RegistrationListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
