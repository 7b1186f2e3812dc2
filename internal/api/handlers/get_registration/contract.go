package get_registration

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations/models"
)

type RegistrationService interface {
	GetByID(ctx context.Context, id int64, patientID int64) (*models.RegistrationResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
