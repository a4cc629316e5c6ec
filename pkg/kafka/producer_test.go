package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("booking.confirmed").
		WithValue(map[string]any{"bookingId": 42}).
		WithEventID("evt-42").
		WithEventType("booking.confirmed").
		Build()
	require.NoError(t, err)
	return msg
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := newProducer(writer, "campbook.events")

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))

	written := writer.Written()
	require.Len(t, written, 1)
	assert.Equal(t, "booking.confirmed", string(written[0].Key))
	assert.JSONEq(t, `{"bookingId":42}`, string(written[0].Value))
	assert.Equal(t, "evt-42", headerValue(written[0], HeaderEventID))
	assert.Equal(t, "booking.confirmed", headerValue(written[0], HeaderEventType))
	assert.Empty(t, written[0].Topic)
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, "campbook.events")

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestProducer_WrapsWriteErrors(t *testing.T) {
	brokerErr := errors.New("leader not available")
	p := newProducer(&fakeWriter{err: brokerErr}, "campbook.events")

	err := p.Publish(context.Background(), buildMessage(t))

	assert.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), "campbook.events")
}

func TestProducer_MiddlewareSeesTopic(t *testing.T) {
	p := newProducer(&fakeWriter{}, "campbook.events")

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	assert.Equal(t, []string{"campbook.events"}, seen)
}

func TestProducer_Close(t *testing.T) {
	writer := &fakeWriter{}
	p := newProducer(writer, "campbook.events")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t)), ErrProducerClosed)
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(nil, "campbook.events", nil)
	assert.Error(t, err)
}
