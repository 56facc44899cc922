package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

// publisher is the subset of *nats.Conn the adapter needs.
type publisher interface {
	Publish(subj string, data []byte) error
}

// EventPublisherAdapter publishes transfer events on core NATS subjects
// "<subject_prefix>.<operation>".
type EventPublisherAdapter struct {
	nc            *nats.Conn
	pub           publisher
	subjectPrefix string
	logger        domain.Logger
}

// NewEventPublisherAdapter connects to NATS using the nats section of the config.
// The returned cleanup drains the connection.
func NewEventPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*EventPublisherAdapter, func(), error) {
	appCfg := cfgProvider.Get()
	natsCfg := appCfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher", appCfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	adapter := &EventPublisherAdapter{
		nc:            nc,
		pub:           nc,
		subjectPrefix: natsCfg.SubjectPrefix,
		logger:        appLogger,
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Draining NATS publisher connection...")
		adapter.Close()
	}
	return adapter, cleanup, nil
}

func newEventPublisher(pub publisher, subjectPrefix string, logger domain.Logger) *EventPublisherAdapter {
	return &EventPublisherAdapter{pub: pub, subjectPrefix: subjectPrefix, logger: logger}
}

// Subject returns the subject an operation's events are published on.
func (a *EventPublisherAdapter) Subject(op domain.TransferOperation) string {
	return fmt.Sprintf("%s.%s", a.subjectPrefix, op)
}

// PublishTransferEvent implements domain.EventPublisher.
func (a *EventPublisherAdapter) PublishTransferEvent(ctx context.Context, event *domain.TransferEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer event %s: %w", event.EventID, err)
	}
	subject := a.Subject(event.Operation)
	if err := a.pub.Publish(subject, payload); err != nil {
		a.logger.Error(ctx, "Failed to publish transfer event", "subject", subject, "event_id", event.EventID, "error", err.Error())
		return fmt.Errorf("nats publish to %s failed: %w", subject, err)
	}
	a.logger.Debug(ctx, "Transfer event published", "subject", subject, "event_id", event.EventID)
	return nil
}

// Conn returns the underlying NATS connection for health checks. It is nil for test publishers.
func (a *EventPublisherAdapter) Conn() *nats.Conn {
	return a.nc
}

// Close drains and closes the NATS connection.
func (a *EventPublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
}
