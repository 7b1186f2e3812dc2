package cancel_registration

import "errors"

var (
	// ErrRegistrationNotFound возвращается, когда запись не найдена
	ErrRegistrationNotFound = errors.New("cancel_registration: registration not found")

	// ErrAccessDenied возвращается, когда пациент отменяет чужую запись
	ErrAccessDenied = errors.New("cancel_registration: access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("cancel_registration: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("cancel_registration: internal error")
)
