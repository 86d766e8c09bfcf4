package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/service"
)

// Resolver applies an authority verdict to a document.
type Resolver interface {
	ApplyAuthorityResolution(ctx context.Context, input *service.ResolutionInput) (*domain.FiscalDocument, error)
}

// Disposition is what happens to a delivered message.
type Disposition int

const (
	// Ack removes the message from the subscription.
	Ack Disposition = iota
	// Nack asks Pub/Sub to redeliver the message later.
	Nack
)

// Subscriber consumes authority resolutions from a Pub/Sub subscription.
type Subscriber struct {
	sub     *pubsub.Subscription
	handler *MessageHandler
	log     logrus.FieldLogger
}

// MessageHandler turns one resolution message into a service call.
type MessageHandler struct {
	resolver Resolver
	log      logrus.FieldLogger
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(resolver Resolver, log logrus.FieldLogger) *MessageHandler {
	return &MessageHandler{resolver: resolver, log: log}
}

// NewPubSubClient connects to Pub/Sub for the configured project.
func NewPubSubClient(ctx context.Context, cfg *config.PubSubConfig) (*pubsub.Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return client, nil
}

// NewSubscriber binds a subscriber to the configured subscription.
func NewSubscriber(client *pubsub.Client, cfg *config.PubSubConfig, resolver Resolver, log logrus.FieldLogger) *Subscriber {
	log = log.WithFields(logrus.Fields{"component": "resolution_subscriber", "subscription": cfg.Subscription})
	return &Subscriber{
		sub:     client.Subscription(cfg.Subscription),
		handler: NewMessageHandler(resolver, log),
		log:     log,
	}
}

// Run receives messages until ctx is canceled.
func (s *Subscriber) Run(ctx context.Context) error {
	s.log.Info("started")
	err := s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.handler.Handle(ctx, msg.ID, msg.Data) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving resolutions: %w", err)
	}
	s.log.Info("shutdown complete")
	return nil
}

// Handle decodes one resolution and applies it. Messages that can never
// succeed are acknowledged and logged so they do not loop forever.
func (h *MessageHandler) Handle(ctx context.Context, msgID string, data []byte) Disposition {
	entry := h.log.WithField("message_id", msgID)

	var input service.ResolutionInput
	if err := json.Unmarshal(data, &input); err != nil {
		entry.WithError(err).Error("discarding undecodable resolution")
		return Ack
	}
	entry = entry.WithFields(logrus.Fields{"document_id": input.DocumentID, "outcome": input.Outcome})

	_, err := h.resolver.ApplyAuthorityResolution(ctx, &input)
	switch {
	case err == nil:
		entry.Info("resolution applied")
		return Ack
	case isPermanent(err):
		entry.WithError(err).Error("discarding resolution")
		return Ack
	default:
		entry.WithError(err).Warn("resolution failed, will be redelivered")
		return Nack
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrDocumentNotFound) ||
		errors.Is(err, domain.ErrInvalidTransition)
}
