package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

func TestHTTPErrorHandler_DomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{domain.ErrInvalidTwoFactorCode, http.StatusUnauthorized, "invalid credentials"},
		{domain.ErrAccountDisabled, http.StatusForbidden, "account disabled"},
		{domain.ErrRateLimitExceeded, http.StatusTooManyRequests, "too many attempts, try again later"},
		{domain.ErrChallengeExpired, http.StatusUnauthorized, "two-factor challenge expired"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "token expired"},
		{domain.ErrTokenMalformed, http.StatusUnauthorized, "invalid token"},
		{domain.ErrRefreshReused, http.StatusUnauthorized, "invalid token"},
		{domain.ErrTokenRevoked, http.StatusUnauthorized, "token revoked"},
		{domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{domain.ErrUserExists, http.StatusConflict, "user already exists"},
		{domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{domain.ErrTwoFactorAlreadyOn, http.StatusBadRequest, "two-factor already enabled"},
		{domain.ErrTwoFactorNotEnrolled, http.StatusBadRequest, "two-factor not set up"},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler(tc.err, c)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: invalid json: %v", tc.err, err)
		}
		if body["error"] != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, body["error"])
		}
	}
}

func TestHTTPErrorHandler_WrongFactorIsIndistinguishable(t *testing.T) {
	// Wrong password and wrong TOTP code produce byte-identical responses,
	// so a probe cannot learn which factor failed.
	handler := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()

	render := func(err error) (int, string) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		rec := httptest.NewRecorder()
		handler(err, e.NewContext(req, rec))
		return rec.Code, rec.Body.String()
	}

	passCode, passBody := render(domain.ErrInvalidCredentials)
	totpCode, totpBody := render(domain.ErrInvalidTwoFactorCode)

	if passCode != totpCode || passBody != totpBody {
		t.Fatalf("responses differ: %d %q vs %d %q", passCode, passBody, totpCode, totpBody)
	}
}

func TestHTTPErrorHandler_UnexpectedErrorIsOpaque(t *testing.T) {
	handler := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	rec := httptest.NewRecorder()
	handler(errors.New("mongo: connection reset"), e.NewContext(req, rec))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Fatalf("internal details leaked: %q", body["error"])
	}
}

func TestHTTPErrorHandler_EchoErrorsPassThrough(t *testing.T) {
	handler := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	handler(echo.NewHTTPError(http.StatusNotFound, "Not Found"), e.NewContext(req, rec))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
