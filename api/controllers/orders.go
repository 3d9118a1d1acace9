package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/embercart/embercart-backend/api/middleware"
	"github.com/embercart/embercart-backend/api/responses"
	"github.com/embercart/embercart-backend/api/validators"
	orderssvc "github.com/embercart/embercart-backend/internal/orders"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/logger"
	"github.com/embercart/embercart-backend/pkg/pagination"
)

type placeOrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	AddressID uuid.UUID `json:"address_id" validate:"required"`
}

type placeOrderRequest struct {
	Lines      []placeOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentRef *string                 `json:"payment_ref"`
}

// OrderPlace creates an order from the requested lines, each shipping to one
// of the caller's saved addresses.
func OrderPlace(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]orderssvc.PlaceOrderLine, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, orderssvc.PlaceOrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				AddressID: line.AddressID,
			})
		}

		order, err := svc.Place(r.Context(), orderssvc.PlaceOrderInput{
			UserID:     middleware.UserIDFromContext(r.Context()),
			Lines:      lines,
			PaymentRef: payload.PaymentRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderGet returns one order. Owners and admins may read it.
func OrderGet(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), orderActor(r), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderListMine pages through the caller's order history.
func OrderListMine(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SellerOrderLines pages through the purchased lines that belong to the
// calling seller's products.
func SellerOrderLines(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, total, err := svc.ListSellerLines(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"lines": lines,
			"meta":  pagination.BuildMeta(params, total),
		})
	}
}

// OrderLineCancel cancels one purchased line and restores its stock.
func OrderLineCancel(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.CancelLine(r.Context(), orderActor(r), lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

type updateLineStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// OrderLineUpdateStatus moves a purchased line through its lifecycle. The
// selling party or an admin may update it.
func OrderLineUpdateStatus(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLineStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderItemStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		line, err := svc.UpdateLineStatus(r.Context(), orderssvc.UpdateLineStatusInput{
			LineID: lineID,
			Status: status,
			Actor:  orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func lineIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id")
	}
	return id, nil
}

func orderActor(r *http.Request) orderssvc.Actor {
	return orderssvc.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Roles:  middleware.RolesFromContext(r.Context()),
	}
}
