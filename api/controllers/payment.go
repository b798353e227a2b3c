package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/api/middleware"
	"github.com/angelmondragon/bakery-backend/api/responses"
	"github.com/angelmondragon/bakery-backend/api/validators"
	"github.com/angelmondragon/bakery-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/types"
)

const idempotencyHeader = "Idempotency-Key"

type createPaymentRequest struct {
	SourceID string          `json:"sourceId" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type createPaymentResponse struct {
	Success bool                     `json:"success"`
	Payment *payments.ChargeResult `json:"payment"`
}

// PaymentConfig exposes the public identifiers the card form needs.
func PaymentConfig(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured"))
			return
		}
		responses.WriteSuccess(w, svc.Config())
	}
}

// PaymentCreate charges a tokenized card. Failures are reported with the
// checkout error kind so the client can decide whether to retry.
func PaymentCreate(svc payments.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized"))
			return
		}

		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Charge(r.Context(), payments.ChargeInput{
			SourceID:       body.SourceID,
			Amount:         body.Amount,
			Currency:       currency,
			IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyHeader)),
			UserID:         userID,
		})
		if err != nil {
			if chargeErr := payments.AsChargeError(err); chargeErr != nil {
				responses.WritePaymentFailure(w, chargeErr.Kind.HTTPStatus(), types.PaymentFailure{
					Message: chargeErr.Message,
					Error:   chargeErr.Detail,
					Kind:    chargeErr.Kind.String(),
				})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, createPaymentResponse{Success: true, Payment: result})
	}
}

func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured"))
			return
		}
		result, err := svc.Get(r.Context(), chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
