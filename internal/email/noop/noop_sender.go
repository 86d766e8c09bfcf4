package noop

import (
	"context"

	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/port"
)

type noopNotifier struct {
	log logrus.FieldLogger
}

// NewNoopNotifier creates a Notifier that only logs what it would have sent.
func NewNoopNotifier(log logrus.FieldLogger) port.Notifier {
	return &noopNotifier{log: log.WithField("component", "noop_notifier")}
}

func (s *noopNotifier) SendAcceptanceNotice(_ context.Context, n port.AcceptanceNotice) error {
	s.log.WithFields(logrus.Fields{
		"to":                n.ToEmail,
		"full_number":       n.FullNumber,
		"grand_total":       n.GrandTotal,
		"confirmation_code": n.ConfirmationCode,
	}).Info("acceptance notice (not sent)")
	return nil
}
