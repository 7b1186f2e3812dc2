package create_registration

import "errors"

var (
	// ErrDuplicateRegistrationNo возвращается, когда все попытки сгенерировать уникальный номер записи исчерпаны
	ErrDuplicateRegistrationNo = errors.New("create_registration: duplicate registration number")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_registration: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_registration: internal error")
)
