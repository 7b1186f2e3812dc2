package paymentgateway

import "errors"

var (
	// ErrUnavailable возвращается при временной недоступности шлюза; запрос можно повторить
	ErrUnavailable = errors.New("paymentgateway: gateway unavailable")

	// ErrRejected возвращается, когда шлюз окончательно отказал в возврате
	ErrRejected = errors.New("paymentgateway: refund rejected")

	// ErrInvalidRequest возвращается при некорректном запросе возврата
	ErrInvalidRequest = errors.New("paymentgateway: invalid refund request")
)
