package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var ErrUnsupportedChannel = errors.New("unsupported delivery channel")

type TextSender interface {
	SendText(ctx context.Context, phone, text string) error
}

type EmailSender interface {
	SendMessage(to, name, subject, text string) error
}

// Worker consumes delivery requests and pushes them out through the
// channel's sender.
type Worker struct {
	Channel     *amqp.Channel
	Texts       TextSender
	Emails      EmailSender
	SendTimeout time.Duration
	Logger      *zap.Logger
}

func NewWorker(ch *amqp.Channel, texts TextSender, emails EmailSender, logger *zap.Logger) *Worker {
	return &Worker{
		Channel:     ch,
		Texts:       texts,
		Emails:      emails,
		SendTimeout: 15 * time.Second,
		Logger:      logger,
	}
}

// Start consumes until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.ConsumeWithContext(ctx,
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.Logger.Info("delivery worker consuming", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("delivery worker stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var req usecase.DeliveryRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		w.Logger.Error("malformed delivery payload, dead-lettering", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.Process(ctx, req); err != nil {
		metrics.RecordDeliveryFailure(string(req.Channel))
		w.Logger.Error("delivery failed",
			zap.String("entry_id", req.EntryID),
			zap.String("lead_id", req.LeadID),
			zap.String("channel", string(req.Channel)),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	w.Logger.Info("message delivered",
		zap.String("entry_id", req.EntryID),
		zap.String("lead_id", req.LeadID),
		zap.String("channel", string(req.Channel)))
	_ = d.Ack(false)
}

// Process routes one request to its channel sender.
func (w *Worker) Process(ctx context.Context, req usecase.DeliveryRequest) error {
	ctx, cancel := context.WithTimeout(ctx, w.SendTimeout)
	defer cancel()

	switch req.Channel {
	case entity.ChannelTexts:
		if w.Texts == nil {
			return fmt.Errorf("%w: texts sender not configured", ErrUnsupportedChannel)
		}
		return w.Texts.SendText(ctx, req.To, req.Text)
	case entity.ChannelEmails:
		if w.Emails == nil {
			return fmt.Errorf("%w: email sender not configured", ErrUnsupportedChannel)
		}
		return w.Emails.SendMessage(req.To, req.Name, subjectFor(req.MessageType), req.Text)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedChannel, req.Channel)
	}
}

func subjectFor(t entity.MessageType) string {
	switch t {
	case entity.MessageInitialOutreach:
		return "Thanks for reaching out"
	case entity.MessageFollowUp:
		return "Checking in"
	default:
		return "A message from your agent"
	}
}
