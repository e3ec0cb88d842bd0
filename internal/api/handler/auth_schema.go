package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type deviceRequest struct {
	DeviceID   string `json:"device_id"   validate:"required"`
	DeviceName string `json:"device_name"`
	Platform   string `json:"platform"`
	AppVersion string `json:"app_version"`
}

type registerRequest struct {
	Name       string         `json:"name"        validate:"required"`
	Email      string         `json:"email"       validate:"required,email"`
	Password   string         `json:"password"    validate:"required,min=8"`
	Phone      string         `json:"phone"`
	Role       string         `json:"role"        validate:"omitempty,oneof=user publisher admin"`
	RequireOTP *bool          `json:"require_otp"`
	Device     *deviceRequest `json:"device"`
}

type loginRequest struct {
	Email    string         `json:"email"    validate:"required,email"`
	Password string         `json:"password" validate:"required"`
	Device   *deviceRequest `json:"device"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Code        string `json:"code"         validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Guest            bool   `json:"guest"`
}

type principalResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type registerResponse struct {
	OTPRequired bool               `json:"otp_required"`
	Principal   *principalResponse `json:"principal,omitempty"`
	Tokens      *tokenResponse     `json:"tokens,omitempty"`
}

type loginResponse struct {
	Principal *principalResponse `json:"principal"`
	Tokens    *tokenResponse     `json:"tokens"`
}

type deviceResponse struct {
	DeviceID     string    `json:"device_id"`
	DeviceName   string    `json:"device_name,omitempty"`
	Platform     string    `json:"platform,omitempty"`
	AppVersion   string    `json:"app_version,omitempty"`
	LastIP       string    `json:"last_ip,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
}

type listDevicesResponse struct {
	Devices []deviceResponse `json:"devices"`
}

type messageResponse struct {
	Message string `json:"message"`
}
