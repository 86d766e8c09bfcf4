package ses_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/email/ses"
	"fiscaldoc/internal/port"
)

func newTestClient(endpoint string) *sesv2.Client {
	return sesv2.New(sesv2.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
	})
}

func TestSESNotifier_SendAcceptanceNotice(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/email/outbound-emails", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MessageId":"m-1"}`))
	}))
	defer server.Close()

	notifier := ses.NewSESNotifierWithClient(newTestClient(server.URL), "billing@example.com", "Billing")
	err := notifier.SendAcceptanceNotice(context.Background(), port.AcceptanceNotice{
		ToEmail:          "ana@example.com",
		ToName:           "Ana",
		FullNumber:       "F001-00000042",
		DocumentType:     domain.DocumentTypeInvoice,
		Currency:         "PEN",
		GrandTotal:       "118.00",
		ConfirmationCode: "CDR-9",
		QRPayload:        "20100070970|01|F001|42|18.00|118.00|2026-03-10|6|20512345678|",
	})
	require.NoError(t, err)

	assert.Equal(t, "Billing <billing@example.com>", captured["FromEmailAddress"])
	dest := captured["Destination"].(map[string]interface{})
	assert.Equal(t, []interface{}{"ana@example.com"}, dest["ToAddresses"])

	simple := captured["Content"].(map[string]interface{})["Simple"].(map[string]interface{})
	subject := simple["Subject"].(map[string]interface{})["Data"]
	assert.Equal(t, "Invoice F001-00000042 accepted", subject)
	text := simple["Body"].(map[string]interface{})["Text"].(map[string]interface{})["Data"].(string)
	assert.Contains(t, text, "PEN 118.00")
	assert.Contains(t, text, "Confirmation code: CDR-9")
}

func TestSESNotifier_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Amzn-ErrorType", "MessageRejected")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Email address is not verified."}`))
	}))
	defer server.Close()

	notifier := ses.NewSESNotifierWithClient(newTestClient(server.URL), "billing@example.com", "Billing")
	err := notifier.SendAcceptanceNotice(context.Background(), port.AcceptanceNotice{
		ToEmail:      "ana@example.com",
		FullNumber:   "B001-00000001",
		DocumentType: domain.DocumentTypeReceipt,
	})
	assert.ErrorContains(t, err, "SES SendEmail")
}
