package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type MockTextSender struct {
	mock.Mock
}

func (m *MockTextSender) SendText(ctx context.Context, phone, text string) error {
	return m.Called(ctx, phone, text).Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendMessage(to, name, subject, text string) error {
	return m.Called(to, name, subject, text).Error(0)
}

// ackRecorder stands in for the broker side of a delivery.
type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error { a.acked = true; return nil }
func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func delivery(t *testing.T, req usecase.DeliveryRequest) (amqp.Delivery, *ackRecorder) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	rec := &ackRecorder{}
	return amqp.Delivery{Acknowledger: rec, Body: body, DeliveryTag: 1}, rec
}

func TestProcess_RoutesTexts(t *testing.T) {
	texts := new(MockTextSender)
	texts.On("SendText", mock.Anything, "+15551234567", "hello").Return(nil)
	w := NewWorker(nil, texts, new(MockEmailSender), zap.NewNop())

	err := w.Process(context.Background(), usecase.DeliveryRequest{
		Channel: entity.ChannelTexts, To: "+15551234567", Text: "hello",
	})

	assert.NoError(t, err)
	texts.AssertExpectations(t)
}

func TestProcess_RoutesEmails(t *testing.T) {
	emails := new(MockEmailSender)
	emails.On("SendMessage", "dana@example.com", "Dana", "Checking in", "hello").Return(nil)
	w := NewWorker(nil, new(MockTextSender), emails, zap.NewNop())

	err := w.Process(context.Background(), usecase.DeliveryRequest{
		Channel:     entity.ChannelEmails,
		To:          "dana@example.com",
		Name:        "Dana",
		MessageType: entity.MessageFollowUp,
		Text:        "hello",
	})

	assert.NoError(t, err)
	emails.AssertExpectations(t)
}

func TestProcess_UnsupportedChannel(t *testing.T) {
	w := NewWorker(nil, nil, nil, zap.NewNop())

	err := w.Process(context.Background(), usecase.DeliveryRequest{Channel: entity.ChannelCalls})
	assert.ErrorIs(t, err, ErrUnsupportedChannel)

	err = w.Process(context.Background(), usecase.DeliveryRequest{Channel: entity.ChannelTexts})
	assert.ErrorIs(t, err, ErrUnsupportedChannel)
}

func TestHandle_AcksDelivered(t *testing.T) {
	texts := new(MockTextSender)
	texts.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	w := NewWorker(nil, texts, nil, zap.NewNop())

	d, rec := delivery(t, usecase.DeliveryRequest{EntryID: "e1", Channel: entity.ChannelTexts, To: "+1", Text: "hi"})
	w.handle(context.Background(), d)

	assert.True(t, rec.acked)
	assert.False(t, rec.nacked)
}

func TestHandle_DeadLettersFailures(t *testing.T) {
	texts := new(MockTextSender)
	texts.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("rate limited"))
	w := NewWorker(nil, texts, nil, zap.NewNop())

	d, rec := delivery(t, usecase.DeliveryRequest{EntryID: "e1", Channel: entity.ChannelTexts, To: "+1", Text: "hi"})
	w.handle(context.Background(), d)

	assert.True(t, rec.nacked)
	assert.False(t, rec.requeue)
	assert.False(t, rec.acked)
}

func TestHandle_DeadLettersMalformedPayload(t *testing.T) {
	w := NewWorker(nil, nil, nil, zap.NewNop())
	rec := &ackRecorder{}

	w.handle(context.Background(), amqp.Delivery{Acknowledger: rec, Body: []byte("{not json")})

	assert.True(t, rec.nacked)
	assert.False(t, rec.requeue)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "Thanks for reaching out", subjectFor(entity.MessageInitialOutreach))
	assert.Equal(t, "Checking in", subjectFor(entity.MessageFollowUp))
	assert.Equal(t, "A message from your agent", subjectFor(entity.MessageReminder))
}
