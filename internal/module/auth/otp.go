package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soundcraft/server/internal/shared/random"
)

// OTP purposes. Codes issued for one purpose never verify for another.
const (
	OTPPurposeVerifyEmail   = "verify_email"
	OTPPurposeResetPassword = "reset_password"
)

// otpStore is the slice of the Redis API the OTP manager needs.
// redis.UniversalClient satisfies it.
type otpStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// OTPManager issues and verifies short-lived one-time codes backed by Redis.
// Codes are single use: verification consumes the stored code atomically.
type OTPManager struct {
	redis  otpStore
	expiry time.Duration
}

// NewOTPManager creates a new OTP manager.
func NewOTPManager(store otpStore, expiry time.Duration) *OTPManager {
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	return &OTPManager{redis: store, expiry: expiry}
}

// Issue generates a 6-digit code for the email and stores it with a TTL.
// Issuing again before expiry replaces the previous code.
func (m *OTPManager) Issue(ctx context.Context, purpose, email string) (string, error) {
	code := random.Digits(6)

	if err := m.redis.Set(ctx, m.key(purpose, email), code, m.expiry).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	return code, nil
}

// Verify checks the code for the email and consumes it on success.
func (m *OTPManager) Verify(ctx context.Context, purpose, email, code string) error {
	stored, err := m.redis.GetDel(ctx, m.key(purpose, email)).Result()
	if err == redis.Nil {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	return nil
}

func (m *OTPManager) key(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}
