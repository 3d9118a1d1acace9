package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/embercart/embercart-backend/api/middleware"
	"github.com/embercart/embercart-backend/api/responses"
	"github.com/embercart/embercart-backend/api/validators"
	addresssvc "github.com/embercart/embercart-backend/internal/address"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/logger"
)

type createAddressRequest struct {
	Label      *string `json:"label"`
	Street     string  `json:"street" validate:"required"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	Country    string  `json:"country" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Phone      *string `json:"phone"`
	IsDefault  bool    `json:"is_default"`
}

// AddressCreate saves a delivery address for the caller.
func AddressCreate(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addr, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), addresssvc.CreateInput{
			Label:      payload.Label,
			Street:     payload.Street,
			City:       payload.City,
			State:      payload.State,
			Country:    payload.Country,
			PostalCode: payload.PostalCode,
			Phone:      payload.Phone,
			IsDefault:  payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, addr)
	}
}

// AddressList returns the caller's saved addresses.
func AddressList(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type updateAddressRequest struct {
	Label      *string `json:"label"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	Country    *string `json:"country"`
	PostalCode *string `json:"postal_code"`
	Phone      *string `json:"phone"`
	IsDefault  *bool   `json:"is_default"`
}

// AddressUpdate edits one of the caller's saved addresses.
func AddressUpdate(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addressID, err := addressIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addr, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), addressID, addresssvc.UpdateInput{
			Label:      payload.Label,
			Street:     payload.Street,
			City:       payload.City,
			State:      payload.State,
			Country:    payload.Country,
			PostalCode: payload.PostalCode,
			Phone:      payload.Phone,
			IsDefault:  payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addr)
	}
}

// AddressDelete removes one of the caller's saved addresses.
func AddressDelete(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addressID, err := addressIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func addressIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "addressId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id")
	}
	return id, nil
}
