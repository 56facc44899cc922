package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
	"gitlab.com/timkado/api/paramem-service/pkg/contextkeys"
)

// Provider transfer endpoints, relative to the prefix.
const (
	EndpointCommissionCalculate         = "Transfer/CommissionCalculate"
	EndpointTransferableAmountCalculate = "Transfer/TransferableAmountCalculate"
	EndpointTransferStart               = "Transfer/Start"
)

// ParamField is one entry of a ParamSchema. A field with a Default is filled
// in when absent or nil; a field without one is mandatory.
type ParamField struct {
	Name    string
	Default func(cfg config.ParamEmConfig) any
}

// ParamSchema lists the parameters an operation requires, in reporting order.
type ParamSchema []ParamField

// Apply returns a copy of params with defaults filled in, or a
// *domain.ValidationError naming the first mandatory field that is absent.
func (s ParamSchema) Apply(cfg config.ParamEmConfig, params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params)+len(s))
	for k, v := range params {
		out[k] = v
	}
	for _, f := range s {
		if f.Default == nil {
			continue
		}
		if v, ok := out[f.Name]; !ok || v == nil {
			out[f.Name] = f.Default(cfg)
		}
	}
	for _, f := range s {
		if _, ok := out[f.Name]; !ok {
			return nil, &domain.ValidationError{Field: f.Name}
		}
	}
	return out, nil
}

func configuredAccount(cfg config.ParamEmConfig) any {
	return cfg.AccountID
}

// EFTStartSchema is the parameter contract of Transfer/Start.
var EFTStartSchema = ParamSchema{
	{Name: "senderAccountId", Default: configuredAccount},
	{Name: "transferType"},
	{Name: "amount"},
	{Name: "receiverAccountNo"},
	{Name: "receiverName"},
	{Name: "currency"},
	{Name: "description"},
	{Name: "fastTransferLocation"},
	{Name: "fastTransferType"},
}

// Requester is the part of APIClient the transfer operations depend on.
type Requester interface {
	Request(ctx context.Context, endpoint, method string, params map[string]any) (*domain.Result, error)
}

// TransferService exposes the provider's transfer operations.
type TransferService struct {
	client Requester
	cfg    config.Provider
	events domain.EventPublisher
	logger domain.Logger
}

// NewTransferService creates a TransferService. events may be nil to disable publishing.
func NewTransferService(client Requester, cfg config.Provider, events domain.EventPublisher, logger domain.Logger) *TransferService {
	if client == nil {
		panic("requester is nil in NewTransferService")
	}
	if cfg == nil {
		panic("config provider is nil in NewTransferService")
	}
	if logger == nil {
		panic("logger is nil in NewTransferService")
	}
	return &TransferService{
		client: client,
		cfg:    cfg,
		events: events,
		logger: logger.With("component", "transfer_service"),
	}
}

func (s *TransferService) accountOrDefault(accountID string) string {
	if accountID == "" {
		return s.cfg.Get().ParamEm.AccountID
	}
	return accountID
}

func transferTypeOrDefault(transferType string) string {
	if transferType == "" {
		return config.DefaultTransferType
	}
	return transferType
}

// CommissionCalculate asks the provider for the commission on amount.
// Empty transferType means "1"; empty accountID means the configured account.
func (s *TransferService) CommissionCalculate(ctx context.Context, amount, transferType, accountID string) (*domain.Result, error) {
	accountID = s.accountOrDefault(accountID)
	ctx = withOperation(ctx, domain.OperationCommission, accountID)

	res, err := s.client.Request(ctx, EndpointCommissionCalculate, http.MethodPost, map[string]any{
		"accountId":    accountID,
		"amount":       amount,
		"transferType": transferTypeOrDefault(transferType),
	})
	s.publish(ctx, domain.OperationCommission, accountID, amount, res, err)
	return res, err
}

// TransferableAmountCalculate asks the provider how much can be transferred from the account.
func (s *TransferService) TransferableAmountCalculate(ctx context.Context, transferType, accountID string) (*domain.Result, error) {
	accountID = s.accountOrDefault(accountID)
	ctx = withOperation(ctx, domain.OperationTransferable, accountID)

	res, err := s.client.Request(ctx, EndpointTransferableAmountCalculate, http.MethodGet, map[string]any{
		"accountId":    accountID,
		"transferType": transferTypeOrDefault(transferType),
	})
	s.publish(ctx, domain.OperationTransferable, accountID, "", res, err)
	return res, err
}

// EFTStart starts an EFT transfer. Parameters are checked against
// EFTStartSchema before any network call; a missing one yields a
// *domain.ValidationError whatever the client's error mode.
func (s *TransferService) EFTStart(ctx context.Context, params map[string]any) (*domain.Result, error) {
	filled, err := EFTStartSchema.Apply(s.cfg.Get().ParamEm, params)
	if err != nil {
		s.logger.Warn(ctx, "EFT start rejected before sending", "error", err.Error())
		return nil, err
	}

	accountID := fmt.Sprint(filled["senderAccountId"])
	ctx = withOperation(ctx, domain.OperationEFTStart, accountID)

	res, err := s.client.Request(ctx, EndpointTransferStart, http.MethodPost, filled)
	s.publish(ctx, domain.OperationEFTStart, accountID, fmt.Sprint(filled["amount"]), res, err)
	return res, err
}

func withOperation(ctx context.Context, op domain.TransferOperation, accountID string) context.Context {
	ctx = context.WithValue(ctx, contextkeys.OperationKey, string(op))
	return context.WithValue(ctx, contextkeys.AccountIDKey, accountID)
}

// publish emits the outcome of a forwarded call. Publishing failures are logged only.
func (s *TransferService) publish(ctx context.Context, op domain.TransferOperation, accountID, amount string, res *domain.Result, callErr error) {
	if s.events == nil {
		return
	}

	event := &domain.TransferEvent{
		EventID:    uuid.NewString(),
		Operation:  op,
		AccountID:  accountID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
	var apiErr *domain.APIError
	switch {
	case callErr != nil && errors.As(callErr, &apiErr):
		event.Status = apiErr.Status
		event.ErrorKind = apiErr.Kind
		event.Message = apiErr.Message
	case callErr != nil:
		event.Message = callErr.Error()
	case res != nil:
		event.Success = res.Success
		event.Status = res.Status
		event.ErrorKind = res.Kind
		event.Message = res.Error
	}

	if err := s.events.PublishTransferEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "Transfer event not published", "event_id", event.EventID, "error", err.Error())
	}
}
