package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

type stubSessionService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error)
	verifyOTPFn      func(ctx context.Context, email, code string) error
	loginFn          func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	refreshFn        func(ctx context.Context, refreshToken string) (*ports.TokenBundle, error)
	logoutFn         func(ctx context.Context, principalID string) error
	forgotPasswordFn func(ctx context.Context, email string) error
	resetPasswordFn  func(ctx context.Context, email, code, newPassword string) error
	guestSessionFn   func(ctx context.Context) (*ports.TokenBundle, error)
	setStatusFn      func(ctx context.Context, principalID string, status domain.AccountStatus) error
}

func (s *stubSessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessionService) VerifyOTP(ctx context.Context, email, code string) error {
	return s.verifyOTPFn(ctx, email, code)
}

func (s *stubSessionService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubSessionService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenBundle, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubSessionService) Logout(ctx context.Context, principalID string) error {
	return s.logoutFn(ctx, principalID)
}

func (s *stubSessionService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotPasswordFn(ctx, email)
}

func (s *stubSessionService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return s.resetPasswordFn(ctx, email, code, newPassword)
}

func (s *stubSessionService) GuestSession(ctx context.Context) (*ports.TokenBundle, error) {
	return s.guestSessionFn(ctx)
}

func (s *stubSessionService) SetStatus(ctx context.Context, principalID string, status domain.AccountStatus) error {
	return s.setStatusFn(ctx, principalID, status)
}

type stubDeviceLister struct {
	listFn func(ctx context.Context, principalID string) ([]*domain.DeviceSession, error)
}

func (s *stubDeviceLister) RecordDevice(context.Context, string, ports.DeviceInput, string) error {
	return nil
}

func (s *stubDeviceLister) ListDevices(ctx context.Context, principalID string) ([]*domain.DeviceSession, error) {
	return s.listFn(ctx, principalID)
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func testBundle() *ports.TokenBundle {
	return &ports.TokenBundle{
		AccessToken:      "access123",
		RefreshToken:     "refresh123",
		AccessExpiresIn:  900,
		RefreshExpiresIn: 2592000,
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubSessionService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			if in.Name != "Alice" || in.Email != "alice@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Device == nil || in.Device.DeviceID != "dev-1" {
				t.Fatalf("expected device context, got %+v", in.Device)
			}
			return &ports.RegisterResult{
				Principal: &domain.Principal{ID: "p1", Name: in.Name, Email: in.Email, Role: domain.RoleUser, Status: domain.StatusActive},
				Tokens:    testBundle(),
			}, nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	body := `{"name":"Alice","email":"alice@example.com","password":"password1","device":{"device_id":"dev-1","platform":"ios"}}`
	c, rec := newTestContext(http.MethodPost, "/auth/register", body)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["otp_required"] != false {
		t.Fatalf("expected otp_required=false, got %v", resp["otp_required"])
	}
	principal, ok := resp["principal"].(map[string]any)
	if !ok || principal["id"] != "p1" || principal["email"] != "alice@example.com" {
		t.Fatalf("unexpected principal payload: %+v", resp["principal"])
	}
	tokens, ok := resp["tokens"].(map[string]any)
	if !ok || tokens["access_token"] != "access123" {
		t.Fatalf("unexpected tokens payload: %+v", resp["tokens"])
	}
}

func TestAuthHandler_Register_OTPPendingOmitsTokens(t *testing.T) {
	stub := &stubSessionService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			return &ports.RegisterResult{
				Principal:   &domain.Principal{ID: "p1", Email: in.Email, Status: domain.StatusPending},
				OTPRequired: true,
			}, nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	body := `{"name":"Bob","email":"bob@example.com","password":"password1","require_otp":true}`
	c, rec := newTestContext(http.MethodPost, "/auth/register", body)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["otp_required"] != true {
		t.Fatalf("expected otp_required=true")
	}
	if _, present := resp["tokens"]; present {
		t.Fatalf("pending registration must omit tokens, got %+v", resp)
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	stub := &stubSessionService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.RegisterResult, error) {
			return nil, domain.ErrEmailExists
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	body := `{"name":"Bob","email":"bob@example.com","password":"password1"}`
	c, _ := newTestContext(http.MethodPost, "/auth/register", body)

	if err := handler.Register(c); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists passed through, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubSessionService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.RegisterResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, _ := newTestContext(http.MethodPost, "/auth/register", "not-json")
	if code := httpErrorCode(t, handler.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	// Short password fails validation before the service is reached.
	c, _ = newTestContext(http.MethodPost, "/auth/register", `{"name":"B","email":"b@example.com","password":"short"}`)
	if code := httpErrorCode(t, handler.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubSessionService{
		loginFn: func(_ context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Email != "alice@example.com" || in.Password != "password1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.LoginResult{
				Principal: &domain.Principal{ID: "p1", Email: in.Email, Role: domain.RoleUser, Status: domain.StatusActive},
				Tokens:    testBundle(),
			}, nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"password1"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	tokens, ok := resp["tokens"].(map[string]any)
	if !ok || tokens["refresh_token"] != "refresh123" {
		t.Fatalf("unexpected tokens payload: %+v", resp["tokens"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubSessionService{
		loginFn: func(context.Context, ports.LoginInput) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, _ := newTestContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad-pass"}`)
	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials passed through, got %v", err)
	}
}

func TestAuthHandler_VerifyOTP(t *testing.T) {
	stub := &stubSessionService{
		verifyOTPFn: func(_ context.Context, email, code string) error {
			if email != "bob@example.com" || code != "123456" {
				t.Fatalf("unexpected args: %s %s", email, code)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/otp/verify", `{"email":"bob@example.com","code":"123456"}`)
	if err := handler.VerifyOTP(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Codes are exactly six characters.
	c, _ = newTestContext(http.MethodPost, "/auth/otp/verify", `{"email":"bob@example.com","code":"12345"}`)
	if code := httpErrorCode(t, handler.VerifyOTP(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	stub := &stubSessionService{
		refreshFn: func(_ context.Context, token string) (*ports.TokenBundle, error) {
			if token != "refresh123" {
				return nil, domain.ErrInvalidToken
			}
			return testBundle(), nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/refresh", `{"refresh_token":"refresh123"}`)
	if err := handler.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(http.MethodPost, "/auth/refresh", `{"refresh_token":"stale"}`)
	if err := handler.Refresh(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken passed through, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	called := false
	stub := &stubSessionService{
		logoutFn: func(_ context.Context, principalID string) error {
			called = true
			if principalID != "p1" {
				t.Fatalf("unexpected principal: %s", principalID)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/logout", "")
	c.Set("principal_id", "p1")
	c.Set("role", domain.RoleUser)

	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("expected logout to reach the service")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Logout_GuestIsNoop(t *testing.T) {
	stub := &stubSessionService{
		logoutFn: func(context.Context, string) error {
			t.Fatalf("guest logout must not reach the service")
			return nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/logout", "")
	c.Set("principal_id", "guest-abc")
	c.Set("role", domain.RoleGuest)
	c.Set("guest", true)

	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Logout_MissingClaims(t *testing.T) {
	handler := NewAuthHandler(&stubSessionService{}, &stubDeviceLister{})

	c, _ := newTestContext(http.MethodPost, "/auth/logout", "")
	if code := httpErrorCode(t, handler.Logout(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAuthHandler_ForgotPassword_AlwaysSucceeds(t *testing.T) {
	stub := &stubSessionService{
		forgotPasswordFn: func(_ context.Context, email string) error {
			if email != "ghost@example.com" {
				t.Fatalf("unexpected email: %s", email)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/password/forgot", `{"email":"ghost@example.com"}`)
	if err := handler.ForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	stub := &stubSessionService{
		resetPasswordFn: func(_ context.Context, email, code, newPassword string) error {
			if email != "a@example.com" || code != "654321" || newPassword != "password2" {
				t.Fatalf("unexpected args: %s %s %s", email, code, newPassword)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	body := `{"email":"a@example.com","code":"654321","new_password":"password2"}`
	c, rec := newTestContext(http.MethodPost, "/auth/password/reset", body)
	if err := handler.ResetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Guest(t *testing.T) {
	stub := &stubSessionService{
		guestSessionFn: func(context.Context) (*ports.TokenBundle, error) {
			b := testBundle()
			b.Guest = true
			return b, nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPost, "/auth/guest", "")
	if err := handler.Guest(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["guest"] != true {
		t.Fatalf("expected guest marker in bundle, got %+v", resp)
	}
}

func TestAuthHandler_Devices(t *testing.T) {
	lister := &stubDeviceLister{
		listFn: func(_ context.Context, principalID string) ([]*domain.DeviceSession, error) {
			if principalID != "p1" {
				t.Fatalf("unexpected principal: %s", principalID)
			}
			return []*domain.DeviceSession{
				{DeviceID: "dev-2", Platform: "ios", LastActiveAt: time.Now().UTC()},
				{DeviceID: "dev-1", Platform: "android", LastActiveAt: time.Now().UTC().Add(-time.Hour)},
			}, nil
		},
	}
	handler := NewAuthHandler(&stubSessionService{}, lister)

	c, rec := newTestContext(http.MethodGet, "/auth/devices", "")
	c.Set("principal_id", "p1")
	c.Set("role", domain.RoleUser)

	if err := handler.Devices(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	devices, ok := resp["devices"].([]any)
	if !ok || len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %+v", resp["devices"])
	}
}

func TestAuthHandler_Devices_GuestGetsEmptyList(t *testing.T) {
	lister := &stubDeviceLister{
		listFn: func(context.Context, string) ([]*domain.DeviceSession, error) {
			t.Fatalf("guest must not reach the tracker")
			return nil, nil
		},
	}
	handler := NewAuthHandler(&stubSessionService{}, lister)

	c, rec := newTestContext(http.MethodGet, "/auth/devices", "")
	c.Set("principal_id", "guest-abc")
	c.Set("guest", true)

	if err := handler.Devices(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	devices, ok := resp["devices"].([]any)
	if !ok || len(devices) != 0 {
		t.Fatalf("expected empty device list, got %+v", resp["devices"])
	}
}

func TestAuthHandler_SetStatus(t *testing.T) {
	stub := &stubSessionService{
		setStatusFn: func(_ context.Context, principalID string, status domain.AccountStatus) error {
			if principalID != "p42" || status != domain.StatusSuspended {
				t.Fatalf("unexpected args: %s %s", principalID, status)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, &stubDeviceLister{})

	c, rec := newTestContext(http.MethodPatch, "/auth/principals/p42/status", `{"status":"suspended"}`)
	c.SetPath("/auth/principals/:id/status")
	c.SetParamNames("id")
	c.SetParamValues("p42")

	if err := handler.SetStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Unknown status values are rejected by validation.
	c, _ = newTestContext(http.MethodPatch, "/auth/principals/p42/status", `{"status":"banned"}`)
	if code := httpErrorCode(t, handler.SetStatus(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
