package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soundcraft/server/internal/module/user"
	"github.com/soundcraft/server/internal/shared/mail"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	JWTConfig        *JWTConfig
	OTPExpiry        time.Duration
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// Service provides authentication operations.
type Service struct {
	users  user.Repository
	tokens RefreshTokenRepository
	jwt    *JWTManager
	otp    *OTPManager
	mailer mail.Mailer
	redis  redis.UniversalClient
	config *ServiceConfig
	logger *zap.Logger
}

// NewService creates a new auth service.
func NewService(
	users user.Repository,
	tokens RefreshTokenRepository,
	redisClient redis.UniversalClient,
	mailer mail.Mailer,
	config *ServiceConfig,
	logger *zap.Logger,
) *Service {
	if config.LoginMaxAttempts <= 0 {
		config.LoginMaxAttempts = 5
	}
	if config.LoginWindow <= 0 {
		config.LoginWindow = 15 * time.Minute
	}
	return &Service{
		users:  users,
		tokens: tokens,
		jwt:    NewJWTManager(config.JWTConfig),
		otp:    NewOTPManager(redisClient, config.OTPExpiry),
		mailer: mailer,
		redis:  redisClient,
		config: config,
		logger: logger,
	}
}

// JWT exposes the token manager for middleware wiring.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// Register creates an unverified account and emails a verification code.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*user.Response, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrEmailAlreadyExists
	} else if err != user.ErrUserNotFound {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendVerificationCode(ctx, u); err != nil {
		// The account exists; the user can request a new code.
		s.logger.Warn("failed to send verification code",
			zap.String("email", email),
			zap.Error(err),
		)
	}

	return user.ToResponse(u), nil
}

// ResendVerification sends a fresh verification code to an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Don't reveal whether the account exists.
		if err == user.ErrUserNotFound {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}
	if u.EmailVerified {
		return nil
	}
	return s.sendVerificationCode(ctx, u)
}

// VerifyEmail consumes an OTP code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, req *VerifyEmailRequest) error {
	email := normalizeEmail(req.Email)

	if err := s.otp.Verify(ctx, OTPPurposeVerifyEmail, email, req.Code); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u.EmailVerified {
		return nil
	}

	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// Login validates credentials and returns a token pair.
// Attempts are rate limited per email.
func (s *Service) Login(ctx context.Context, req *LoginRequest, userAgent, ipAddress string) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	allowed, err := s.checkLoginAttempts(ctx, email)
	if err != nil {
		s.logger.Warn("login attempt check failed", zap.Error(err))
	} else if !allowed {
		return nil, ErrTooManyAttempts
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == user.ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	s.resetLoginAttempts(ctx, email)

	tokens, err := s.generateTokenPair(ctx, u, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	return &AuthResponse{User: user.ToResponse(u), Tokens: tokens}, nil
}

// Refresh rotates a refresh token and returns a new token pair.
func (s *Service) Refresh(ctx context.Context, rawToken, userAgent, ipAddress string) (*AuthResponse, error) {
	stored, err := s.tokens.GetByHash(ctx, s.jwt.HashRefreshToken(rawToken))
	if err != nil {
		return nil, err
	}

	if stored.IsRevoked() {
		return nil, ErrRefreshTokenRevoked
	}
	if stored.IsExpired() {
		return nil, ErrRefreshTokenExpired
	}

	u, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	// Rotate: revoke the presented token before issuing a new one.
	if err := s.tokens.Revoke(ctx, stored.ID); err != nil {
		return nil, fmt.Errorf("revoke token: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, u, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	return &AuthResponse{User: user.ToResponse(u), Tokens: tokens}, nil
}

// Logout revokes the presented refresh token.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	stored, err := s.tokens.GetByHash(ctx, s.jwt.HashRefreshToken(rawToken))
	if err != nil {
		if err == ErrRefreshTokenNotFound {
			return nil
		}
		return err
	}
	if stored.IsRevoked() {
		return nil
	}
	return s.tokens.Revoke(ctx, stored.ID)
}

// ForgotPassword emails a password reset code.
// Always succeeds for unknown emails to avoid account enumeration.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if err == user.ErrUserNotFound {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	code, err := s.otp.Issue(ctx, OTPPurposeResetPassword, u.Email)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, u.Email, u.Name, code); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset code, sets the new password and revokes
// all refresh tokens for the account.
func (s *Service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)

	if err := s.otp.Verify(ctx, OTPPurposeResetPassword, email, req.Code); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		s.logger.Warn("failed to revoke tokens after password reset",
			zap.String("user_id", u.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// --- Helpers ---

func (s *Service) sendVerificationCode(ctx context.Context, u *user.User) error {
	code, err := s.otp.Issue(ctx, OTPPurposeVerifyEmail, u.Email)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}
	if err := s.mailer.SendOTPEmail(ctx, u.Email, u.Name, code); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *Service) generateTokenPair(ctx context.Context, u *user.User, userAgent, ipAddress string) (*TokenPair, error) {
	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, refreshExpiry, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Create(ctx, &RefreshToken{
		UserID:    u.ID,
		TokenHash: refreshHash,
		ExpiresAt: refreshExpiry,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

// checkLoginAttempts increments the fixed-window attempt counter for the
// email and reports whether another attempt is allowed.
func (s *Service) checkLoginAttempts(ctx context.Context, email string) (bool, error) {
	key := fmt.Sprintf("login_attempts:%s", email)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.config.LoginWindow).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(s.config.LoginMaxAttempts), nil
}

func (s *Service) resetLoginAttempts(ctx context.Context, email string) {
	if err := s.redis.Del(ctx, fmt.Sprintf("login_attempts:%s", email)).Err(); err != nil {
		s.logger.Debug("failed to reset login attempts", zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
