package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned when the account has not completed OTP verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidToken is returned when a JWT token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidTokenClaims is returned when token claims cannot be parsed.
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	// ErrInvalidOTP is returned when a one-time code is wrong or expired.
	ErrInvalidOTP = errors.New("invalid or expired code")
	// ErrTooManyAttempts is returned when login attempts are rate limited.
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrRefreshTokenNotFound is returned when a refresh token doesn't exist.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired is returned when a refresh token has expired.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrRefreshTokenRevoked is returned when a refresh token was revoked.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)
