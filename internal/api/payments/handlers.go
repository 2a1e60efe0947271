// internal/api/payments/handlers.go
package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/config"
	"github.com/codr1/Padelicious/internal/db"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/models"
	pay "github.com/codr1/Padelicious/internal/payments"
	"github.com/codr1/Padelicious/internal/ratelimit"
	"github.com/codr1/Padelicious/internal/receipts"
	"github.com/codr1/Padelicious/internal/storage"
)

var (
	engine        *pay.Engine
	queries       dbgen.Querier
	proofs        storage.ProofStore
	submitLimiter *ratelimit.Limiter
	appConfig     *config.Config
)

const paymentRequestTimeout = 15 * time.Second

type submitRequest struct {
	Channel  string          `json:"channel"`
	Evidence models.Evidence `json:"evidence"`
}

type validateRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

type proofResponse struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// InitHandlers must be called during server startup before handling requests.
// store and limiter may be nil; uploads are then unavailable and submissions
// unthrottled.
func InitHandlers(e *pay.Engine, q dbgen.Querier, store storage.ProofStore, limiter *ratelimit.Limiter, cfg *config.Config) {
	engine = e
	queries = q
	proofs = store
	submitLimiter = limiter
	appConfig = cfg
}

// GET /api/v1/reservations/{id}/payments
func HandleListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	history, err := engine.ListPayments(r.Context(), reservationID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"reservation_id": reservationID,
		"funding_state":  pay.FundingStateOf(history),
		"payments":       history,
	})
}

// POST /api/v1/reservations/{id}/payments
func HandleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req submitRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid payment payload", Err: err})
		return
	}
	channel, err := models.ParseChannel(strings.ToUpper(strings.TrimSpace(req.Channel)))
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation("channel", "invalid_channel", "channel must be GATEWAY, MOBILE_TRANSFER, PEER_TRANSFER or CASH"))
		return
	}

	if !allowSubmission(w, r, actor) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentRequestTimeout)
	defer cancel()

	submission, err := engine.SubmitPayment(ctx, pay.SubmitParams{
		ReservationID: reservationID,
		Requester:     actor,
		Channel:       channel,
		Evidence:      req.Evidence,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, submission)
}

// POST /api/v1/reservations/{id}/payments/retry
func HandleRetryPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if !allowSubmission(w, r, actor) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentRequestTimeout)
	defer cancel()

	submission, err := engine.RetryPayment(ctx, reservationID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, submission)
}

// GET /api/v1/payments/pending
func HandleListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireStaff(w, r)
	if !ok {
		return
	}
	queue, err := engine.ListAwaitingValidation(r.Context(), actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, queue)
}

// GET /api/v1/payments/{id}
func HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	payment, err := engine.GetPayment(r.Context(), paymentID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, payment)
}

// POST /api/v1/payments/{id}/validate
// The staff check happens in the engine so that it precedes the lookup.
func HandleValidatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req validateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid validation payload", Err: err})
		return
	}
	decision, err := pay.ParseDecision(req.Decision)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	payment, err := engine.ValidateManualPayment(r.Context(), paymentID, actor, decision, strings.TrimSpace(req.Notes))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, payment)
}

// DELETE /api/v1/payments/{id}
func HandleDeletePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := engine.DeletePayment(r.Context(), paymentID, actor); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/payments/proofs
// Multipart upload with the image in the "file" field.
func HandleUploadProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	if proofs == nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: "proof uploads are not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxProofSize+(1<<20))
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusRequestEntityTooLarge, Message: "proof image is too large", Err: err})
			return
		}
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "file", Reason: "is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxProofSize+1))
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("read proof upload: %w", err))
		return
	}
	if len(data) == 0 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "file", Reason: "is empty"})
		return
	}
	if len(data) > storage.MaxProofSize {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusRequestEntityTooLarge, Message: "proof image is too large"})
		return
	}

	contentType := http.DetectContentType(data)
	key, err := proofs.Put(r.Context(), contentType, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContent) {
			apiutil.WriteError(w, r, apperr.Validation("file", "unsupported_content", "proof must be a JPEG, PNG, WebP or PDF file"))
			return
		}
		apiutil.WriteError(w, r, fmt.Errorf("store proof: %w", err))
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("user_id", actor.UserID).
		Str("key", key).
		Int("size", len(data)).
		Msg("Payment proof uploaded")
	writeJSON(w, r, http.StatusCreated, proofResponse{Key: key, ContentType: contentType, Size: len(data)})
}

// GET /api/v1/payments/{id}/proof
func HandleProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	payment, err := engine.GetPayment(r.Context(), paymentID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	key := payment.Evidence.ProofImageKey
	if key == "" || proofs == nil || !storage.ValidKey(key) {
		apiutil.WriteError(w, r, apperr.NotFound("proof"))
		return
	}
	body, err := proofs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			apiutil.WriteError(w, r, apperr.NotFound("proof"))
			return
		}
		apiutil.WriteError(w, r, fmt.Errorf("open proof: %w", err))
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, body); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("payment_id", paymentID).Msg("Failed to stream proof")
	}
}

// GET /api/v1/payments/{id}/receipt
func HandleReceipt(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	payment, err := engine.GetPayment(r.Context(), paymentID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if payment.Status != models.PaymentCompleted {
		apiutil.WriteError(w, r, apperr.Conflict("not_completed", receipts.ErrNotCompleted.Error()))
		return
	}

	receipt, err := buildReceipt(r.Context(), payment)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	pdf, err := receipts.Render(receipt)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("render receipt: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, receipt.Number()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("payment_id", paymentID).Msg("Failed to write receipt")
	}
}

func buildReceipt(ctx context.Context, payment models.Payment) (receipts.Receipt, error) {
	row, err := queries.GetReservation(ctx, payment.ReservationID)
	switch err = db.NotFound(err); {
	case errors.Is(err, db.ErrNotFound):
		return receipts.Receipt{}, apperr.NotFoundCause("reservation", err)
	case err != nil:
		return receipts.Receipt{}, fmt.Errorf("load reservation: %w", err)
	}
	reservation, err := models.ReservationFromRow(row)
	if err != nil {
		return receipts.Receipt{}, err
	}
	court, err := queries.GetCourt(ctx, reservation.CourtID)
	if err != nil {
		return receipts.Receipt{}, fmt.Errorf("load court: %w", err)
	}
	payer, err := queries.GetUser(ctx, reservation.UserID)
	if err != nil {
		return receipts.Receipt{}, fmt.Errorf("load payer: %w", err)
	}

	receipt := receipts.Receipt{
		ClubName:    "Padelicious",
		CourtName:   court.Name,
		PayerName:   strings.TrimSpace(payer.FirstName + " " + payer.LastName),
		PayerEmail:  payer.Email,
		Payment:     payment,
		Reservation: reservation,
	}
	if appConfig != nil {
		if appConfig.App.Name != "" {
			receipt.ClubName = appConfig.App.Name
		}
		if base := strings.TrimRight(appConfig.App.BaseURL, "/"); base != "" {
			receipt.VerifyURL = fmt.Sprintf("%s/api/v1/payments/%d/receipt", base, payment.ID)
		}
	}
	return receipt, nil
}

// allowSubmission applies the submission limiter keyed by user and client IP.
func allowSubmission(w http.ResponseWriter, r *http.Request, actor models.Actor) bool {
	if submitLimiter == nil {
		return true
	}
	identifier := fmt.Sprintf("user:%d", actor.UserID)
	ip := ratelimit.GetClientIP(r, appConfig != nil && !appConfig.IsDevelopment())

	if res := submitLimiter.Check(identifier, ip); !res.Allowed {
		ratelimit.LogRateLimitExceeded(submitLimiter.Name(), identifier, ip, res.Reason)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "too many payment attempts"})
		return false
	}
	submitLimiter.Record(identifier, ip)
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write payments response")
	}
}
