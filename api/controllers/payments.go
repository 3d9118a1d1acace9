package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/embercart/embercart-backend/api/middleware"
	"github.com/embercart/embercart-backend/api/responses"
	"github.com/embercart/embercart-backend/api/validators"
	paymentssvc "github.com/embercart/embercart-backend/internal/payments"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/logger"
)

type createIntentRequest struct {
	Provider string `json:"provider" validate:"required,oneof=stripe razorpay"`
	Currency string `json:"currency"`
}

// PaymentCreateIntent starts a provider-side payment for a placed order.
func PaymentCreateIntent(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := enums.ParsePaymentProvider(payload.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
			return
		}

		result, err := svc.CreateIntent(r.Context(), paymentssvc.CreateIntentInput{
			UserID:   middleware.UserIDFromContext(r.Context()),
			OrderID:  orderID,
			Provider: provider,
			Currency: payload.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
