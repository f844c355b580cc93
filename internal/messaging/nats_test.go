package messaging

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	publishFunc func(subj string, data []byte) error
	subjects    []string
	payloads    [][]byte
	closed      bool
}

func (m *mockConn) Publish(subj string, data []byte) error {
	m.subjects = append(m.subjects, subj)
	m.payloads = append(m.payloads, data)
	if m.publishFunc != nil {
		return m.publishFunc(subj, data)
	}
	return nil
}

func (m *mockConn) Close() {
	m.closed = true
}

func TestPublishPickupEvent(t *testing.T) {
	conn := &mockConn{}
	publisher := NewPublisherWithConn(conn, "pickup")

	err := publisher.PublishPickupEvent(PickupEvent{
		Type:       EventPickupSuccess,
		OrderID:    "ORD-1",
		StoreID:    "store-1",
		Success:    true,
		VerifiedBy: "emp-1",
	})
	require.NoError(t, err)

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "pickup.completed", conn.subjects[0])

	var event PickupEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &event))
	assert.Equal(t, "ORD-1", event.OrderID)
	assert.Equal(t, "emp-1", event.VerifiedBy)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestPublishPickupEvent_DefaultPrefix(t *testing.T) {
	conn := &mockConn{}
	publisher := NewPublisherWithConn(conn, "")

	require.NoError(t, publisher.PublishPickupEvent(PickupEvent{Type: EventCodeGenerated, OrderID: "ORD-1"}))
	assert.Equal(t, []string{"pickup.code_generated"}, conn.subjects)
}

func TestPublishPickupEvent_Error(t *testing.T) {
	conn := &mockConn{
		publishFunc: func(subj string, data []byte) error {
			return errors.New("connection lost")
		},
	}
	publisher := NewPublisherWithConn(conn, "pickup")

	err := publisher.PublishPickupEvent(PickupEvent{Type: EventPickupFailed, OrderID: "ORD-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish pickup event")
}

func TestClose(t *testing.T) {
	conn := &mockConn{}
	publisher := NewPublisherWithConn(conn, "pickup")
	publisher.Close()
	assert.True(t, conn.closed)
}

func TestNoopPublisher(t *testing.T) {
	publisher := NewNoopPublisher()
	assert.NoError(t, publisher.PublishPickupEvent(PickupEvent{Type: EventPickupSuccess}))
	publisher.Close()
}
