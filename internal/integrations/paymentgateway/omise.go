package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// omiseAPI вызовы Omise, нужные для возврата
type omiseAPI interface {
	listRefunds(chargeID string) ([]*omise.Refund, error)
	createRefund(chargeID string, amount int64) (*omise.Refund, error)
}

type omiseClient struct {
	client *omise.Client
}

func (c omiseClient) listRefunds(chargeID string) ([]*omise.Refund, error) {
	list := &omise.RefundList{}
	if err := c.client.Do(list, &operations.ListRefunds{ChargeID: chargeID}); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c omiseClient) createRefund(chargeID string, amount int64) (*omise.Refund, error) {
	refund := &omise.Refund{}
	if err := c.client.Do(refund, &operations.CreateRefund{ChargeID: chargeID, Amount: amount}); err != nil {
		return nil, err
	}
	return refund, nil
}

// Omise шлюз возвратов Omise; TransactionNo записи хранит charge id
type Omise struct {
	api    omiseAPI
	logger Logger
}

// NewOmise создает клиент Omise
func NewOmise(publicKey, secretKey string, logger Logger) (*Omise, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("paymentgateway: create omise client: %w", err)
	}
	return &Omise{api: omiseClient{client: client}, logger: logger}, nil
}

// Refund создаёт возврат по charge
// Если по charge уже есть возвраты на всю сумму, возвращается существующий возврат: повторная доставка задачи не списывает деньги дважды
func (o *Omise) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	existing, err := o.api.listRefunds(req.TransactionNo)
	if err != nil {
		o.logger.Warn("Omise.Refund: charge=%s failed to list refunds: %v", req.TransactionNo, err)
		return nil, classifyOmiseError(err)
	}
	if refund := settledRefund(existing, req.Amount); refund != nil {
		o.logger.Info("Omise.Refund: charge=%s already refunded, refund=%s", req.TransactionNo, refund.ID)
		return &RefundResult{RefundID: refund.ID}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	refund, err := o.api.createRefund(req.TransactionNo, req.Amount)
	if err != nil {
		o.logger.Warn("Omise.Refund: charge=%s failed: %v", req.TransactionNo, err)
		return nil, classifyOmiseError(err)
	}

	o.logger.Info("Omise.Refund: charge=%s refunded amount=%d refund=%s", req.TransactionNo, refund.Amount, refund.ID)
	return &RefundResult{RefundID: refund.ID}, nil
}

// settledRefund возвращает последний возврат по charge, если вместе они покрывают сумму
func settledRefund(refunds []*omise.Refund, amount int64) *omise.Refund {
	var total int64
	var last *omise.Refund
	for _, r := range refunds {
		if r == nil {
			continue
		}
		total += r.Amount
		last = r
	}
	if last == nil || total < amount {
		return nil
	}
	return last
}

// classifyOmiseError 4xx считаются окончательным отказом, остальное можно повторить
func classifyOmiseError(err error) error {
	var apiErr *omise.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError &&
			apiErr.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s: %s", ErrRejected, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
