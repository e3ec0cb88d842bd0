package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newsroomhq/newsroom-api/internal/api/metrics"
	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

// AuthHandler handles HTTP requests for the session lifecycle.
type AuthHandler struct {
	sessions ports.SessionService
	devices  ports.DeviceTracker
}

func NewAuthHandler(sessions ports.SessionService, devices ports.DeviceTracker) *AuthHandler {
	return &AuthHandler{sessions: sessions, devices: devices}
}

// Register creates a new account, optionally gated behind an OTP.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.sessions.Register(c.Request().Context(), ports.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Role:       req.Role,
		RequireOTP: req.RequireOTP,
		Device:     toDeviceInput(req.Device),
		IP:         c.RealIP(),
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(boolLabel(result.OTPRequired)).Inc()

	return c.JSON(http.StatusCreated, registerResponse{
		OTPRequired: result.OTPRequired,
		Principal:   toPrincipalResponse(result.Principal),
		Tokens:      toTokenResponse(result.Tokens),
	})
}

// VerifyOTP activates a pending account.
//
// @Summary      Verify a one-time code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyOTPRequest  true  "Email and code"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.sessions.VerifyOTP(c.Request().Context(), req.Email, req.Code); err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues(otpResultLabel(err)).Inc()
		return err
	}
	metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, messageResponse{Message: "account verified"})
}

// Login authenticates and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.sessions.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.RealIP(),
		Device:   toDeviceInput(req.Device),
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResultLabel(err)).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, loginResponse{
		Principal: toPrincipalResponse(result.Principal),
		Tokens:    toTokenResponse(result.Tokens),
	})
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// fingerprint.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tokens, err := h.sessions.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, *toTokenResponse(tokens))
}

// Logout clears the caller's refresh fingerprint. Guest sessions have
// nothing stored server-side, so guest logout is a no-op success.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	principalID, _, guest, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if !guest {
		if err := h.sessions.Logout(c.Request().Context(), principalID); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// ForgotPassword requests a password reset code. Always returns success so
// account existence is never leaked.
//
// @Summary      Request a password reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Router       /auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.sessions.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "reset code sent if the account exists"})
}

// ResetPassword sets a new password after code validation.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Email, code, new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.sessions.ResetPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password reset"})
}

// Guest issues a stateless guest token bundle.
//
// @Summary      Create a guest session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  tokenResponse
// @Router       /auth/guest [post]
func (h *AuthHandler) Guest(c echo.Context) error {
	tokens, err := h.sessions.GuestSession(c.Request().Context())
	if err != nil {
		return err
	}
	metrics.GuestSessionsTotal.Inc()
	return c.JSON(http.StatusOK, *toTokenResponse(tokens))
}

// Devices lists the caller's device sessions, most recently active first.
//
// @Summary      List the caller's devices
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listDevicesResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/devices [get]
func (h *AuthHandler) Devices(c echo.Context) error {
	principalID, _, guest, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if guest {
		return c.JSON(http.StatusOK, listDevicesResponse{Devices: []deviceResponse{}})
	}

	sessions, err := h.devices.ListDevices(c.Request().Context(), principalID)
	if err != nil {
		return err
	}

	devices := make([]deviceResponse, 0, len(sessions))
	for _, s := range sessions {
		devices = append(devices, deviceResponse{
			DeviceID:     s.DeviceID,
			DeviceName:   s.DeviceName,
			Platform:     s.Platform,
			AppVersion:   s.AppVersion,
			LastIP:       s.LastIP,
			LastActiveAt: s.LastActiveAt,
		})
	}
	return c.JSON(http.StatusOK, listDevicesResponse{Devices: devices})
}

// SetStatus applies an admin suspend or reactivate.
//
// @Summary      Change account status
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Principal ID"
// @Param        body  body      setStatusRequest  true  "New status"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/principals/{id}/status [patch]
func (h *AuthHandler) SetStatus(c echo.Context) error {
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.sessions.SetStatus(c.Request().Context(), c.Param("id"), domain.AccountStatus(req.Status)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "status updated"})
}

// --- mapping helpers ---

func toDeviceInput(d *deviceRequest) *ports.DeviceInput {
	if d == nil {
		return nil
	}
	return &ports.DeviceInput{
		DeviceID:   d.DeviceID,
		DeviceName: d.DeviceName,
		Platform:   d.Platform,
		AppVersion: d.AppVersion,
	}
}

func toPrincipalResponse(p *domain.Principal) *principalResponse {
	if p == nil {
		return nil
	}
	return &principalResponse{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Role:   p.Role,
		Status: string(p.Status),
	}
}

func toTokenResponse(t *ports.TokenBundle) *tokenResponse {
	if t == nil {
		return nil
	}
	return &tokenResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		ExpiresIn:        t.AccessExpiresIn,
		RefreshExpiresIn: t.RefreshExpiresIn,
		Guest:            t.Guest,
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func loginResultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrOTPPending):
		return "otp_pending"
	case errors.Is(err, domain.ErrAccountSuspended):
		return "suspended"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "rate_limited"
	default:
		return "error"
	}
}

func otpResultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrOTPExpired):
		return "expired"
	case errors.Is(err, domain.ErrOTPMismatch):
		return "mismatch"
	case errors.Is(err, domain.ErrOTPNotPending):
		return "not_pending"
	default:
		return "error"
	}
}
