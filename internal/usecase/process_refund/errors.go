package process_refund

import "errors"

var (
	// ErrTerminal задача не может быть выполнена никогда: сообщение уходит в dead-letter
	ErrTerminal = errors.New("process_refund: terminal failure")

	// ErrRetryable временная ошибка: задачу можно повторить
	ErrRetryable = errors.New("process_refund: retryable failure")
)

// IsTerminal проверяет, что повтор задачи бессмысленен
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}
