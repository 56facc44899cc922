package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/logger"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subj string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subj)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestEventPublisherAdapter_Publish(t *testing.T) {
	rec := &recordingPublisher{}
	a := newEventPublisher(rec, "paramem.transfers", logger.NewNop())

	event := &domain.TransferEvent{
		EventID:    "evt-1",
		Operation:  domain.OperationEFTStart,
		AccountID:  "acc-1",
		Amount:     "5.00",
		Success:    false,
		Status:     200,
		ErrorKind:  domain.ErrorKindProvider,
		Message:    "Insufficient funds",
		OccurredAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.PublishTransferEvent(context.Background(), event))

	require.Len(t, rec.subjects, 1)
	assert.Equal(t, "paramem.transfers.eft", rec.subjects[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.payloads[0], &got))
	assert.Equal(t, "evt-1", got["event_id"])
	assert.Equal(t, "eft", got["operation"])
	assert.Equal(t, "ProviderError", got["error_kind"])
	assert.Equal(t, "Insufficient funds", got["message"])
	assert.Equal(t, float64(200), got["status"])
}

func TestEventPublisherAdapter_PublishError(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("nats: connection closed")}
	a := newEventPublisher(rec, "paramem.transfers", logger.NewNop())

	err := a.PublishTransferEvent(context.Background(), &domain.TransferEvent{EventID: "e", Operation: domain.OperationCommission})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paramem.transfers.commission")
	assert.Nil(t, a.Conn())
}
