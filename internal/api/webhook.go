/**
 * @description
 * Stripe webhook endpoint. Events carry a signed header in the form
 * "t=<unix>,v1=<hmac>"; the HMAC-SHA256 is computed over "<t>.<rawBody>"
 * with the endpoint secret. Only verified events reach the service.
 */
package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lovetofly/traslados-service/internal/app"
)

const webhookTolerance = 5 * time.Minute

// WebhookHandler processes payment events pushed by Stripe.
type WebhookHandler struct {
	service *app.Service
	secret  string
	now     func() time.Time
}

// NewWebhookHandler creates the handler for the Stripe webhook endpoint.
func NewWebhookHandler(service *app.Service, secret string) *WebhookHandler {
	return &WebhookHandler{service: service, secret: secret, now: time.Now}
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string `json:"id"`
			Status           string `json:"status"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// ServeHTTP implements the http.Handler interface.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	if !h.isValidSignature(r.Header.Get("Stripe-Signature"), body) {
		log.Printf("level=warn component=webhook msg=\"invalid webhook signature\" remote=%s", r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event stripeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	intentID := event.Data.Object.ID

	switch event.Type {
	case "payment_intent.succeeded":
		if intentID == "" {
			http.Error(w, "Missing payment intent id", http.StatusBadRequest)
			return
		}
		if err := h.service.ApplyGatewaySuccess(r.Context(), intentID); err != nil {
			log.Printf("level=error component=webhook msg=\"failed to apply payment success\" payment_intent_id=%s err=%v", intentID, err)
			http.Error(w, "Failed to process event", http.StatusInternalServerError)
			return
		}
	case "payment_intent.payment_failed":
		if intentID == "" {
			http.Error(w, "Missing payment intent id", http.StatusBadRequest)
			return
		}
		reason := "payment failed"
		if event.Data.Object.LastPaymentError != nil && event.Data.Object.LastPaymentError.Message != "" {
			reason = event.Data.Object.LastPaymentError.Message
		}
		if err := h.service.RecordGatewayFailure(r.Context(), intentID, reason); err != nil {
			log.Printf("level=error component=webhook msg=\"failed to record payment failure\" payment_intent_id=%s err=%v", intentID, err)
			http.Error(w, "Failed to process event", http.StatusInternalServerError)
			return
		}
	default:
		// Unhandled event types are acknowledged so Stripe stops retrying.
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// isValidSignature verifies the "t=...,v1=..." signature header against the
// raw body within the replay tolerance window.
func (h *WebhookHandler) isValidSignature(header string, body []byte) bool {
	if h.secret == "" || header == "" {
		return false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := h.now().Sub(time.Unix(ts, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return true
		}
	}
	return false
}
