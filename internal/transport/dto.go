package transport

import "time"

// OperationResult is the uniform response envelope. Operations report
// failure through it; only authorization denials surface as HTTP errors.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type OperationDataResult[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Model   T      `json:"model"`
}

func OK() OperationResult {
	return OperationResult{Success: true}
}

func Fail(message string) OperationResult {
	return OperationResult{Success: false, Message: message}
}

func DataOK[T any](model T) OperationDataResult[T] {
	return OperationDataResult[T]{Success: true, Model: model}
}

func DataFail[T any](message string) OperationDataResult[T] {
	return OperationDataResult[T]{Success: false, Message: message}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

type AuthorizeResult struct {
	ID          uint      `json:"id"`
	AccessToken string    `json:"access_token"`
	UserName    string    `json:"username"`
	Role        string    `json:"role"`
	ExpiresIn   time.Time `json:"expires_in"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsFirstUser bool      `json:"is_first_user"`
}

// GoogleAuthenticatorModel is the enrollment payload: the base32 shared
// secret and the URL-encoded provisioning URI rendered as a QR code.
type GoogleAuthenticatorModel struct {
	PSK        string `json:"psk,omitempty"`
	BarcodeURL string `json:"barcode_url,omitempty"`
}

type GoogleAuthInfoModel struct {
	PSK                string `json:"psk,omitempty"`
	IsTwoFactorEnabled bool   `json:"is_two_factor_enabled"`
	IsTwoFactorForced  bool   `json:"is_two_factor_forced"`
}
