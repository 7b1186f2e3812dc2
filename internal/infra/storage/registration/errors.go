package registration

import "errors"

var (
	// ErrRegistrationNotFound возвращается, когда запись не найдена
	ErrRegistrationNotFound = errors.New("registration.repository: registration not found")

	// ErrDuplicateRegistrationNo возвращается при конфликте уникального номера записи
	ErrDuplicateRegistrationNo = errors.New("registration.repository: duplicate registration number")

	// ErrDuplicateQueueNumber возвращается при конфликте номера очереди в расписании
	ErrDuplicateQueueNumber = errors.New("registration.repository: duplicate queue number")

	// ErrDuplicateDetailSlot возвращается, когда пациент уже занимает этот подслот расписания
	ErrDuplicateDetailSlot = errors.New("registration.repository: patient already holds this detail slot")

	// ErrStateConflict возвращается, когда условное обновление не нашло запись в ожидаемом состоянии
	ErrStateConflict = errors.New("registration.repository: registration state changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("registration.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("registration.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("registration.repository: failed to scan row")
)
