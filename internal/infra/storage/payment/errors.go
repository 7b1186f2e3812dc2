package payment

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платёж по записи не найден
	ErrPaymentNotFound = errors.New("payment.repository: payment not found")

	// ErrDuplicatePayment возвращается при повторном платеже по записи или дубликате номера транзакции
	ErrDuplicatePayment = errors.New("payment.repository: duplicate payment")

	// ErrStateConflict возвращается, когда платёж не в ожидаемом статусе
	ErrStateConflict = errors.New("payment.repository: payment state changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("payment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("payment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("payment.repository: failed to scan row")
)
