package settlement

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/velora-mobility/velora/internal/logging"
)

func newWebhookApp(t *testing.T) (*fiber.App, *processorFixture) {
	t.Helper()
	f := newProcessorFixture(t)
	h := NewHandler(NewVerifier("whsec_test", 5*time.Minute), f.processor, logging.Discard())

	app := fiber.New()
	app.Post("/webhooks/payments", h.Receive)
	return app, f
}

func postEvent(t *testing.T, app *fiber.App, payload, header string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/payments", strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if header != "" {
		req.Header.Set("Webhook-Signature", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestWebhookAcknowledgesSignedEvent(t *testing.T) {
	app, f := newWebhookApp(t)
	w := f.createWallet(t, "cus_123")

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":1500,"currency":"EUR","customer":"cus_123"}}}`
	status, body := postEvent(t, app, payload, SignPayload("whsec_test", time.Now(), []byte(payload)))

	require.Equal(t, fiber.StatusOK, status)

	var decoded map[string]bool
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.True(t, decoded["received"])

	balance, err := f.ledger.Balance(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1500), balance)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, _ := newWebhookApp(t)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`
	status, _ := postEvent(t, app, payload, SignPayload("whsec_wrong", time.Now(), []byte(payload)))
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = postEvent(t, app, payload, "")
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	app, _ := newWebhookApp(t)

	payload := `not-json`
	status, _ := postEvent(t, app, payload, SignPayload("whsec_test", time.Now(), []byte(payload)))
	require.Equal(t, fiber.StatusBadRequest, status)
}
