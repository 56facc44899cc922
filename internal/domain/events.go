package domain

//go:generate mockgen -source=events.go -destination=mocks/event_publisher_mock.go -package=mocks

import (
	"context"
	"time"
)

// TransferOperation names a transfer call forwarded to the provider.
type TransferOperation string

const (
	OperationCommission   TransferOperation = "commission"
	OperationTransferable TransferOperation = "transferable"
	OperationEFTStart     TransferOperation = "eft"
)

// TransferEvent describes the outcome of one transfer operation. It never
// carries the bearer token or the provider credentials.
type TransferEvent struct {
	EventID    string            `json:"event_id"`
	Operation  TransferOperation `json:"operation"`
	AccountID  string            `json:"account_id,omitempty"`
	Amount     string            `json:"amount,omitempty"`
	Success    bool              `json:"success"`
	Status     int               `json:"status"`
	ErrorKind  ErrorKind         `json:"error_kind,omitempty"`
	Message    string            `json:"message,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher fans transfer outcomes out to interested consumers.
type EventPublisher interface {
	PublishTransferEvent(ctx context.Context, event *TransferEvent) error
}
