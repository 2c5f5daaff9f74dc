package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/flash"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const cartPath = "/cart/"

type cartView struct {
	Cart     *cart.CartDTO   `json:"cart"`
	Messages []flash.Message `json:"messages"`
}

// CartView renders the cart and consumes the pending notices.
func CartView(svc cart.Service, notices FlashStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.View(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView{Cart: view, Messages: popFlash(r.Context(), notices, logg)})
	}
}

// CartAdd adds one unit of a product, then returns to the product page.
func CartAdd(svc cart.Service, notices FlashStore, logg *logger.Logger) http.HandlerFunc {
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
		result, err := svc.AddProduct(r.Context(), userID, productID)
		respondCartAction(w, r, svc, userID, notices, logg, result, err, "/products/"+productID.String()+"/")
	}
}

// CartRemove drops a line, or takes one unit off it when action=decrease.
func CartRemove(svc cart.Service, notices FlashStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.URLParamUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *cart.MutationResult
		if cartAction(r) == "decrease" {
			result, err = svc.Decrease(r.Context(), userID, itemID)
		} else {
			result, err = svc.Remove(r.Context(), userID, itemID)
		}
		respondCartAction(w, r, svc, userID, notices, logg, result, err, cartPath)
	}
}

func CartCount(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		count, err := svc.Count(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]int{"cart_count": count})
	}
}

func cartAction(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return r.Form.Get("action")
}

// respondCartAction answers an AJAX caller with a CartActionResult and a page
// caller with a notice plus a redirect. Domain failures reach AJAX callers as
// success=false; infrastructure failures are rendered as errors.
func respondCartAction(
	w http.ResponseWriter,
	r *http.Request,
	svc cart.Service,
	userID uuid.UUID,
	notices FlashStore,
	logg *logger.Logger,
	result *cart.MutationResult,
	err error,
	redirectTo string,
) {
	ctx := r.Context()
	if !validators.IsAJAX(r) {
		if err != nil {
			flashFailure(ctx, notices, logg, err)
		} else {
			pushFlash(ctx, notices, logg, result.Level, result.Message)
		}
		responses.Redirect(w, r, redirectTo)
		return
	}

	if err == nil {
		responses.WriteJSON(w, http.StatusOK, types.CartActionResult{
			Success:   true,
			CartCount: result.CartCount,
			Message:   result.Message,
		})
		return
	}

	code, msg := responses.PublicMessage(err)
	if pkgerrors.MetadataFor(code).HTTPStatus >= http.StatusInternalServerError {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	count, countErr := svc.Count(ctx, userID)
	if countErr != nil {
		responses.WriteError(ctx, logg, w, countErr)
		return
	}
	responses.WriteJSON(w, http.StatusOK, types.CartActionResult{
		Success:   false,
		CartCount: count,
		Message:   msg,
		Code:      string(code),
	})
}
