package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrobolivia/farm-platform/internal/api/metrics"
	"github.com/agrobolivia/farm-platform/internal/api/middleware"
	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

type AuthHandler struct {
	auth      ports.AuthService
	twoFactor ports.TwoFactorService
}

func NewAuthHandler(auth ports.AuthService, twoFactor ports.TwoFactorService) *AuthHandler {
	return &AuthHandler{auth: auth, twoFactor: twoFactor}
}

// Register creates a new user account with the FARMER role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Community: req.Community,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login verifies email and password. Accounts with two-factor enabled
// receive a challenge id instead of tokens.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return err
	}

	if result.TwoFactorRequired {
		metrics.LoginsTotal.WithLabelValues("challenge").Inc()
		return c.JSON(http.StatusOK, loginResponse{
			TwoFactorRequired: true,
			ChallengeID:       result.ChallengeID,
		})
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		User:   toUserResponse(result.User),
		Tokens: toTokenResponse(result.Tokens),
	})
}

// VerifyTwoFactor completes a login that required a TOTP code.
//
// @Summary      Verify two-factor code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyTwoFactorRequest  true  "Challenge id and code"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/verify-2fa [post]
func (h *AuthHandler) VerifyTwoFactor(c echo.Context) error {
	var req verifyTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.auth.VerifyTwoFactor(c.Request().Context(), req.ChallengeID, req.Code, clientInfo(c))
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		User:   toUserResponse(result.User),
		Tokens: toTokenResponse(result.Tokens),
	})
}

// Refresh rotates a refresh token and returns a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Current refresh token"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		metrics.RefreshRotationsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.RefreshRotationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, toTokenResponse(pair))
}

// Logout revokes the calling session.
//
// @Summary      Logout current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	if err := h.auth.Logout(c.Request().Context(), auth, clientInfo(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// LogoutEverywhere revokes every active session for the calling user.
//
// @Summary      Logout all sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutEverywhere(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	if err := h.auth.LogoutEverywhere(c.Request().Context(), auth, clientInfo(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "all sessions revoked"})
}

// ChangePassword rotates the account password and revokes all sessions.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.Request().Context(), auth, req.CurrentPassword, req.NewPassword, clientInfo(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed, all sessions revoked"})
}

// Profile returns the calling user's account.
//
// @Summary      Get own profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	user, err := h.auth.Profile(c.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateProfile updates the mutable profile fields of the calling user.
//
// @Summary      Update own profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to update"
// @Success      200   {object}  userResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	fields := map[string]string{}
	if req.FirstName != "" {
		fields["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		fields["last_name"] = req.LastName
	}
	if req.Phone != "" {
		fields["phone"] = req.Phone
	}
	if req.Department != "" {
		fields["department"] = req.Department
	}
	if req.Community != "" {
		fields["community"] = req.Community
	}

	user, err := h.auth.UpdateProfile(c.Request().Context(), auth.UserID, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// BeginTwoFactor generates a TOTP secret and provisioning URI for the
// calling user and moves enrollment to PENDING.
//
// @Summary      Start two-factor enrollment
// @Tags         two-factor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  enrollmentResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/2fa/setup [post]
func (h *AuthHandler) BeginTwoFactor(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	secret, uri, err := h.twoFactor.BeginEnrollment(c.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enrollmentResponse{Secret: secret, ProvisioningURI: uri})
}

// EnableTwoFactor confirms a pending enrollment with a valid code.
//
// @Summary      Confirm two-factor enrollment
// @Tags         two-factor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      twoFactorCodeRequest  true  "Code from authenticator app"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/2fa/enable [post]
func (h *AuthHandler) EnableTwoFactor(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	var req twoFactorCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.twoFactor.ConfirmEnrollment(c.Request().Context(), auth.UserID, req.Code, clientInfo(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "two-factor enabled"})
}

// DisableTwoFactor turns off two-factor after a final code check.
//
// @Summary      Disable two-factor
// @Tags         two-factor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      twoFactorCodeRequest  true  "Code from authenticator app"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/2fa/disable [post]
func (h *AuthHandler) DisableTwoFactor(c echo.Context) error {
	auth, ok := middleware.AuthContextFrom(c)
	if !ok {
		return domain.ErrTokenMalformed
	}

	var req twoFactorCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.twoFactor.Disable(c.Request().Context(), auth.UserID, req.Code, clientInfo(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "two-factor disabled"})
}
