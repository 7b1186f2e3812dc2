package confirm_payment

import "errors"

var (
	// ErrRegistrationNotFound возвращается, когда запись не найдена
	ErrRegistrationNotFound = errors.New("confirm_payment: registration not found")

	// ErrAccessDenied возвращается при оплате чужой записи
	ErrAccessDenied = errors.New("confirm_payment: access denied")

	// ErrAmountMismatch возвращается, когда сумма не совпадает со стоимостью приёма
	ErrAmountMismatch = errors.New("confirm_payment: amount does not match registration fee")

	// ErrDuplicateTransaction возвращается, когда номер транзакции уже использован
	ErrDuplicateTransaction = errors.New("confirm_payment: transaction number already used")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("confirm_payment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("confirm_payment: internal error")
)
