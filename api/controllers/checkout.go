package controllers

import (
	"net/http"
	"strings"

	"github.com/pawcircle/pawcircle-backend/api/middleware"
	"github.com/pawcircle/pawcircle-backend/api/responses"
	"github.com/pawcircle/pawcircle-backend/api/validators"
	checkoutsvc "github.com/pawcircle/pawcircle-backend/internal/checkout"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/types"
)

// Field rules live in the checkout service so every missing field is reported together as a
// precondition failure; the tags here only bound payload size.
type checkoutRequest struct {
	Contact struct {
		Name  string `json:"name" validate:"max=120"`
		Email string `json:"email" validate:"max=254"`
		Phone string `json:"phone" validate:"max=20"`
	} `json:"contact"`
	ShippingAddress struct {
		Line1      string `json:"line1" validate:"max=200"`
		Line2      string `json:"line2" validate:"max=200"`
		City       string `json:"city" validate:"max=100"`
		State      string `json:"state" validate:"max=100"`
		PostalCode string `json:"postalCode" validate:"max=12"`
	} `json:"shippingAddress"`
	DeliveryMethod string `json:"deliveryMethod" validate:"max=16"`
	PaymentMethod  string `json:"paymentMethod" validate:"max=16"`
}

func (p checkoutRequest) toInput() checkoutsvc.CommitInput {
	return checkoutsvc.CommitInput{
		Contact: types.Contact{
			Name:  p.Contact.Name,
			Email: p.Contact.Email,
			Phone: p.Contact.Phone,
		},
		Address: types.ShippingAddress{
			Line1:      p.ShippingAddress.Line1,
			Line2:      p.ShippingAddress.Line2,
			City:       p.ShippingAddress.City,
			State:      p.ShippingAddress.State,
			PostalCode: p.ShippingAddress.PostalCode,
		},
		Delivery: enums.DeliveryMethod(strings.ToLower(strings.TrimSpace(p.DeliveryMethod))),
		Payment:  enums.PaymentMethod(strings.ToLower(strings.TrimSpace(p.PaymentMethod))),
	}
}

// Checkout commits the user's cart as an order and returns the frozen snapshot.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Commit(r.Context(), middleware.UserIDFromContext(r.Context()), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

// CartBreakdown prices the live cart for the requested delivery method.
func CartBreakdown(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		delivery, err := enums.ParseDeliveryMethod(r.URL.Query().Get("delivery"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method").
				WithDetails(map[string]string{"delivery": "must be standard or express"}))
			return
		}

		quote, err := svc.Quote(r.Context(), middleware.UserIDFromContext(r.Context()), delivery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
