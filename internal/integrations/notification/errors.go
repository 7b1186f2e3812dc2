package notification

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках отправки
	ErrInternal = errors.New("notification: internal error")

	// ErrInvalidResponse возвращается при неожиданном ответе получателя webhook
	ErrInvalidResponse = errors.New("notification: invalid response")
)
