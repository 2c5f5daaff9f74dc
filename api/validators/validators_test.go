package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short"}`))
	var body loginBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at least 8 characters", details["password"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"longenough","admin":true}`))
	var body loginBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestRequestKindHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Requested-With", "xmlhttprequest")
	assert.True(t, IsJSON(req))
	assert.True(t, IsAJAX(req))

	form := httptest.NewRequest(http.MethodPost, "/", nil)
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.False(t, IsJSON(form))
	assert.False(t, IsAJAX(form))
}

func TestQueryParsing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/?limit=500&category=xyz", nil)
	_, err := ParseQueryInt(req, "limit", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryUUID(req, "category")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	id, err := ParseQueryUUID(req, "missing")
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestURLParamUUIDMalformedIsNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/abc/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productID", "abc")
	req = req.WithContext(contextWithRoute(req, rc))
	_, err := URLParamUUID(req, "productID")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "chaus", SanitizeString("  chaussure ", 5))
	assert.Equal(t, "été", SanitizeString("été", 5))
}

func contextWithRoute(r *http.Request, rc *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rc)
}
