package ses

import (
	"context"
	"fmt"
	"html"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
}

// NewSESNotifier creates an SES-backed Notifier.
func NewSESNotifier(ctx context.Context, cfg *config.EmailConfig) (port.Notifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESNotifierWithClient(sesv2.NewFromConfig(awsCfg), cfg.FromAddress, cfg.FromName), nil
}

// NewSESNotifierWithClient wraps an existing SES client.
func NewSESNotifierWithClient(client *sesv2.Client, fromAddress, fromName string) port.Notifier {
	return &sesNotifier{client: client, fromAddress: fromAddress, fromName: fromName}
}

func (s *sesNotifier) SendAcceptanceNotice(ctx context.Context, n port.AcceptanceNotice) error {
	subject := fmt.Sprintf("%s %s accepted", documentLabel(n), n.FullNumber)
	htmlBody := buildAcceptanceHTML(n)
	textBody := buildAcceptanceText(n)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{n.ToEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func documentLabel(n port.AcceptanceNotice) string {
	switch n.DocumentType {
	case domain.DocumentTypeInvoice:
		return "Invoice"
	case domain.DocumentTypeReceipt:
		return "Receipt"
	case domain.DocumentTypeCreditNote:
		return "Credit note"
	case domain.DocumentTypeDebitNote:
		return "Debit note"
	default:
		return "Document"
	}
}

func buildAcceptanceText(n port.AcceptanceNotice) string {
	text := fmt.Sprintf("Hi %s,\n\n%s %s for %s %s has been accepted by the tax authority.\n",
		n.ToName, documentLabel(n), n.FullNumber, n.Currency, n.GrandTotal)
	if n.ConfirmationCode != "" {
		text += fmt.Sprintf("Confirmation code: %s\n", n.ConfirmationCode)
	}
	text += fmt.Sprintf("\nQR data: %s\n", n.QRPayload)
	return text
}

func buildAcceptanceHTML(n port.AcceptanceNotice) string {
	confirmation := ""
	if n.ConfirmationCode != "" {
		confirmation = fmt.Sprintf(`<p>Confirmation code: <strong>%s</strong></p>`, html.EscapeString(n.ConfirmationCode))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s %s accepted</h2>
  <p>Hi %s,</p>
  <p>Your document for <strong>%s %s</strong> has been accepted by the tax authority.</p>
  %s
  <p style="word-break: break-all; color: #666; font-family: monospace;">%s</p>
</body>
</html>`,
		documentLabel(n), html.EscapeString(n.FullNumber),
		html.EscapeString(n.ToName),
		html.EscapeString(n.Currency), html.EscapeString(n.GrandTotal),
		confirmation,
		html.EscapeString(n.QRPayload))
}
