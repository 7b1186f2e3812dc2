package cancel_registration

import (
	"context"

	cancelRegistration "github.com/m04kA/SMC-AppointmentService/internal/usecase/cancel_registration"
)

type CancelRegistrationUseCase interface {
	Execute(ctx context.Context, req *cancelRegistration.Request) (*cancelRegistration.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
