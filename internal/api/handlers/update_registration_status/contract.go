package update_registration_status

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations/models"
)

type RegistrationService interface {
	ConfirmRegistration(ctx context.Context, id int64) (*models.RegistrationResponse, error)
	CheckIn(ctx context.Context, id int64) (*models.RegistrationResponse, error)
	CompleteRegistration(ctx context.Context, id int64, visitRecord *string) (*models.RegistrationResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
