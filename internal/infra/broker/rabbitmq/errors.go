package rabbitmq

import "errors"

var (
	// ErrConnect возвращается при ошибке подключения к брокеру
	ErrConnect = errors.New("rabbitmq: failed to connect")

	// ErrDeclare возвращается при ошибке объявления exchange или очереди
	ErrDeclare = errors.New("rabbitmq: failed to declare topology")

	// ErrPublish возвращается при ошибке публикации сообщения
	ErrPublish = errors.New("rabbitmq: failed to publish message")

	// ErrConsume возвращается при ошибке подписки на очередь
	ErrConsume = errors.New("rabbitmq: failed to consume")
)
