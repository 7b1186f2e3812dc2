package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrIllegalTransition возвращается при переходе, отсутствующем в таблице
	ErrIllegalTransition = errors.New("domain: illegal status transition")

	// ErrAlreadyCancelled возвращается для любых событий над отменённой записью
	ErrAlreadyCancelled = errors.New("domain: registration already cancelled")

	// ErrAlreadyCompleted возвращается для любых событий над завершённой записью
	ErrAlreadyCompleted = errors.New("domain: registration already completed")

	// ErrVisitInProgress возвращается при отмене записи, пациент которой уже у врача
	ErrVisitInProgress = errors.New("domain: visit is in progress")

	// ErrAlreadyCheckedIn возвращается при повторной отметке о приходе
	ErrAlreadyCheckedIn = errors.New("domain: patient already checked in")

	// ErrAlreadyPaid возвращается при повторной оплате
	ErrAlreadyPaid = errors.New("domain: registration already paid")

	// ErrRegistrationClosed возвращается при оплате отменённой или завершённой записи
	ErrRegistrationClosed = errors.New("domain: registration is closed")

	// ErrNotPaid возвращается при попытке вернуть неоплаченную запись
	ErrNotPaid = errors.New("domain: registration is not paid")

	// ErrNotRefunding возвращается при завершении возврата, который не начинался
	ErrNotRefunding = errors.New("domain: refund is not in progress")

	// ErrAlreadyRefunding возвращается при повторном запуске возврата
	ErrAlreadyRefunding = errors.New("domain: refund already in progress")

	// ErrAlreadyRefunded возвращается, когда возврат уже выполнен
	ErrAlreadyRefunded = errors.New("domain: payment already refunded")
)

// RegistrationEvent событие жизненного цикла записи
type RegistrationEvent string

const (
	EventConfirm  RegistrationEvent = "confirm"
	EventComplete RegistrationEvent = "complete"
	EventCancel   RegistrationEvent = "cancel"
)

type transition struct {
	to    RegistrationStatus
	guard func(r *Registration) error
}

// registrationTransitions таблица переходов: статус × событие → новый статус
// Всё, чего нет в таблице, отклоняется
var registrationTransitions = map[RegistrationStatus]map[RegistrationEvent]transition{
	RegistrationPending: {
		EventConfirm:  {to: RegistrationConfirmed},
		EventComplete: {to: RegistrationCompleted},
		EventCancel:   {to: RegistrationCancelled, guard: notCheckedIn},
	},
	RegistrationConfirmed: {
		EventComplete: {to: RegistrationCompleted},
		EventCancel:   {to: RegistrationCancelled, guard: notCheckedIn},
	},
}

// terminalStatusErrors ошибки для событий над записью в конечном статусе
var terminalStatusErrors = map[RegistrationStatus]error{
	RegistrationCancelled: ErrAlreadyCancelled,
	RegistrationCompleted: ErrAlreadyCompleted,
}

func notCheckedIn(r *Registration) error {
	if r.CheckedInAt != nil {
		return ErrVisitInProgress
	}
	return nil
}

// NextStatus проверяет событие по таблице переходов и возвращает новый статус записи
func NextStatus(r *Registration, event RegistrationEvent) (RegistrationStatus, error) {
	if err, ok := terminalStatusErrors[r.Status]; ok {
		return "", err
	}

	t, ok := registrationTransitions[r.Status][event]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrIllegalTransition, event, r.Status)
	}

	if t.guard != nil {
		if err := t.guard(r); err != nil {
			return "", err
		}
	}

	return t.to, nil
}

// PaymentEvent событие жизненного цикла оплаты
type PaymentEvent string

const (
	PaymentEventPay    PaymentEvent = "pay"
	PaymentEventRefund PaymentEvent = "refund"
	PaymentEventSettle PaymentEvent = "settle"
)

// paymentTransitions PENDING → PAID → REFUNDING → REFUNDED, только вперёд
var paymentTransitions = map[PaymentStatus]map[PaymentEvent]PaymentStatus{
	PaymentPending:   {PaymentEventPay: PaymentPaid},
	PaymentPaid:      {PaymentEventRefund: PaymentRefunding},
	PaymentRefunding: {PaymentEventSettle: PaymentRefunded},
}

// paymentRejections конкретные ошибки для запрещённых переходов оплаты
var paymentRejections = map[PaymentEvent]map[PaymentStatus]error{
	PaymentEventPay: {
		PaymentPaid:      ErrAlreadyPaid,
		PaymentRefunding: ErrAlreadyPaid,
		PaymentRefunded:  ErrAlreadyPaid,
	},
	PaymentEventRefund: {
		PaymentPending:   ErrNotPaid,
		PaymentRefunding: ErrAlreadyRefunding,
		PaymentRefunded:  ErrAlreadyRefunded,
	},
	PaymentEventSettle: {
		PaymentPending:  ErrNotRefunding,
		PaymentPaid:     ErrNotRefunding,
		PaymentRefunded: ErrAlreadyRefunded,
	},
}

// NextPaymentStatus проверяет событие оплаты по таблице и возвращает новый статус
func NextPaymentStatus(from PaymentStatus, event PaymentEvent) (PaymentStatus, error) {
	if to, ok := paymentTransitions[from][event]; ok {
		return to, nil
	}
	if err, ok := paymentRejections[event][from]; ok {
		return "", err
	}
	return "", fmt.Errorf("%w: payment %s from %s", ErrIllegalTransition, event, from)
}

// Confirm подтверждает запись
func (r *Registration) Confirm(now time.Time) error {
	to, err := NextStatus(r, EventConfirm)
	if err != nil {
		return err
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Complete завершает визит, сохраняя заключение врача
func (r *Registration) Complete(now time.Time, visitRecord *string) error {
	to, err := NextStatus(r, EventComplete)
	if err != nil {
		return err
	}
	r.Status = to
	r.CompletedAt = &now
	r.VisitRecord = visitRecord
	r.UpdatedAt = now
	return nil
}

// Cancel отменяет запись; освобождение места и возврат выполняет вызывающий
func (r *Registration) Cancel(now time.Time) error {
	to, err := NextStatus(r, EventCancel)
	if err != nil {
		return err
	}
	r.Status = to
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

// CheckIn отмечает, что пациент пришёл на приём; после этого отмена невозможна
func (r *Registration) CheckIn(now time.Time) error {
	if err, ok := terminalStatusErrors[r.Status]; ok {
		return err
	}
	if r.CheckedInAt != nil {
		return ErrAlreadyCheckedIn
	}
	r.CheckedInAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkPaid переводит оплату в PAID
func (r *Registration) MarkPaid(now time.Time) error {
	to, err := NextPaymentStatus(r.PaymentStatus, PaymentEventPay)
	if err != nil {
		return err
	}
	if !r.IsActive() {
		return ErrRegistrationClosed
	}
	r.PaymentStatus = to
	r.PaidAt = &now
	r.UpdatedAt = now
	return nil
}

// StartRefund переводит оплату в REFUNDING
func (r *Registration) StartRefund(now time.Time) error {
	to, err := NextPaymentStatus(r.PaymentStatus, PaymentEventRefund)
	if err != nil {
		return err
	}
	r.PaymentStatus = to
	r.UpdatedAt = now
	return nil
}

// SettleRefund переводит оплату в REFUNDED
func (r *Registration) SettleRefund(now time.Time) error {
	to, err := NextPaymentStatus(r.PaymentStatus, PaymentEventSettle)
	if err != nil {
		return err
	}
	r.PaymentStatus = to
	r.RefundedAt = &now
	r.UpdatedAt = now
	return nil
}

// StartRefund переводит платёж в REFUNDING
func (p *Payment) StartRefund(now time.Time) error {
	to, err := NextPaymentStatus(p.Status, PaymentEventRefund)
	if err != nil {
		return err
	}
	p.Status = to
	p.UpdatedAt = now
	return nil
}

// SettleRefund переводит платёж в REFUNDED
func (p *Payment) SettleRefund(now time.Time) error {
	to, err := NextPaymentStatus(p.Status, PaymentEventSettle)
	if err != nil {
		return err
	}
	p.Status = to
	p.RefundedAt = &now
	p.UpdatedAt = now
	return nil
}
