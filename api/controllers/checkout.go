package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const emptyCartNotice = "Your cart is empty."

func successPath(orderNumber string) string {
	return "/cart/checkout/success/" + orderNumber + "/"
}

// CheckoutForm presents the shipping form with a fresh verification question.
func CheckoutForm(svc checkout.Service, notices FlashStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.Begin(r.Context(), userID, middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) && !validators.IsAJAX(r) {
				pushFlash(r.Context(), notices, logg, enums.FlashWarning, emptyCartNotice)
				responses.Redirect(w, r, cartPath)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckoutConfirm takes a form-encoded or JSON shipping form. A rejected form
// comes back as 422 with every violation, the echoed values and the new
// question.
func CheckoutConfirm(svc checkout.Service, notices FlashStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		jsonBody := validators.IsJSON(r)
		form, err := decodeShippingForm(r, jsonBody)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), userID, middleware.SessionIDFromContext(r.Context()), form)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) && !jsonBody && !validators.IsAJAX(r) {
				pushFlash(r.Context(), notices, logg, enums.FlashWarning, emptyCartNotice)
				responses.Redirect(w, r, cartPath)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if jsonBody || validators.IsAJAX(r) {
			writeOrderCreated(w, r, logg, order, nil)
			return
		}
		responses.Redirect(w, r, successPath(order.OrderNumber))
	}
}

func CheckoutSuccess(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.Success(r.Context(), userID, chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CheckoutCancel(svc checkout.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Cancel())
	}
}

// BuyNow purchases a single unit straight from the product page.
func BuyNow(svc checkout.Service, notices FlashStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.URLParamUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.BuyNow(r.Context(), userID, productID)
		if validators.IsAJAX(r) {
			writeOrderCreated(w, r, logg, order, err)
			return
		}
		if err != nil {
			flashFailure(r.Context(), notices, logg, err)
			responses.Redirect(w, r, "/products/"+productID.String()+"/")
			return
		}
		pushFlash(r.Context(), notices, logg, enums.FlashSuccess, "Thank you for your purchase!")
		responses.Redirect(w, r, successPath(order.OrderNumber))
	}
}

func writeOrderCreated(w http.ResponseWriter, r *http.Request, logg *logger.Logger, order *orders.OrderDTO, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	w.Header().Set("Location", successPath(order.OrderNumber))
	responses.WriteSuccessStatus(w, http.StatusCreated, order)
}

func decodeShippingForm(r *http.Request, jsonBody bool) (checkout.ShippingForm, error) {
	var form checkout.ShippingForm
	if jsonBody {
		err := validators.DecodeJSON(r, &form)
		return form, err
	}
	if err := r.ParseForm(); err != nil {
		return form, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	form = checkout.ShippingForm{
		FullName:        r.PostForm.Get("full_name"),
		Phone:           r.PostForm.Get("phone"),
		Wilaya:          r.PostForm.Get("wilaya"),
		Commune:         r.PostForm.Get("commune"),
		Address:         r.PostForm.Get("address"),
		PostalCode:      r.PostForm.Get("postal_code"),
		Notes:           r.PostForm.Get("notes"),
		ChallengeAnswer: r.PostForm.Get("challenge_answer"),
	}
	return form, nil
}
