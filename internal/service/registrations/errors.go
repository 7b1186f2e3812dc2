package registrations

import "errors"

var (
	// ErrRegistrationNotFound возвращается, когда запись не найдена
	ErrRegistrationNotFound = errors.New("registrations: registration not found")

	// ErrAccessDenied возвращается, когда пациент запрашивает чужую запись
	ErrAccessDenied = errors.New("registrations: access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("registrations: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("registrations: internal error")
)
