/**
 * @description
 * HTTP handlers for the traslados service.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lovetofly/traslados-service/internal/app"
	"github.com/lovetofly/traslados-service/internal/domain"
	"github.com/lovetofly/traslados-service/internal/store"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var params domain.CreateRequestParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.service.CreateRequest(r.Context(), userID, params)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, req)
}

func (h *Handler) handleGetAgreement(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	state, err := h.service.GetAgreement(r.Context(), requestID, userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *Handler) handleConfirmAgreement(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	state, err := h.service.ConfirmAgreement(r.Context(), requestID, userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *Handler) handleCreateFeeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		PromoCode string `json:"promo_code"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.service.CreateFeeSession(r.Context(), requestID, userID, body.PromoCode)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

func (h *Handler) handleListFees(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	ledger, err := h.service.ListFees(r.Context(), requestID, userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ledger)
}

func (h *Handler) handleConfirmFeePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fee, err := h.service.ConfirmFeePayment(r.Context(), requestID, userID, body.PaymentIntentID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, fee)
}

func (h *Handler) handleGetThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	thread, err := h.service.GetThread(r.Context(), requestID, userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, thread)
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.service.PostMessage(r.Context(), requestID, userID, body.Content)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Reconcile(r.Context())
	if err != nil {
		log.Printf("Error running fee reconciliation: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

func (h *Handler) handleTransitionRequestStatus(w http.ResponseWriter, r *http.Request) {
	requestID, err := requestIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.service.TransitionRequestStatus(r.Context(), requestID, body.Status)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

func requestIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
}

// respondWithServiceError maps service errors onto the HTTP taxonomy.
func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrEmptyMessage),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidPromoCode):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotAParty):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrRequestNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrFeeNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrAgreementNotConfirmed),
		errors.Is(err, app.ErrRequestClosed),
		errors.Is(err, app.ErrFeeNotPending),
		errors.Is(err, app.ErrPaymentNotCompleted),
		errors.Is(err, app.ErrReferenceMismatch):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, app.ErrGatewayUnavailable):
		respondWithError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("Error handling %s %s: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
