package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/workerhub/internal/auth"
	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/domain/session"
	"github.com/geocoder89/workerhub/internal/notifications"
	"github.com/geocoder89/workerhub/internal/security"
	"github.com/geocoder89/workerhub/internal/utils"
	"github.com/geocoder89/workerhub/internal/validation"
	"github.com/go-playground/validator/v10"
)

type AccountsConfig struct {
	PasswordPolicy security.PasswordPolicy
	// ResetMinLength applies to the new password on reset confirmation instead of the full policy.
	ResetMinLength int
	ResetURL       string
	ResetTTL       time.Duration
	// RevealUnknownResetEmail makes a reset request for an unknown email fail visibly.
	RevealUnknownResetEmail bool
	AdminInviteToken        string
}

type RegisterInput struct {
	Username string `json:"username" binding:"required,max=150,username"`
	Email    string `json:"email" binding:"omitempty,email,max=254"`
	Password string `json:"password" binding:"required"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type LoginResult struct {
	TokenPair
	User account.Profile `json:"user"`
}

type ResetConfirmInput struct {
	UID         string `json:"uid" binding:"required"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type AccountService struct {
	users    UserStore
	refresh  RefreshStore
	tokens   *auth.Manager
	sender   Sender
	cfg      AccountsConfig
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewAccountService(users UserStore, refresh RefreshStore, tokens *auth.Manager, sender Sender, cfg AccountsConfig, log *slog.Logger) *AccountService {
	if cfg.ResetMinLength <= 0 {
		cfg.ResetMinLength = 6
	}
	if log == nil {
		log = slog.Default()
	}

	return &AccountService{
		users:    users,
		refresh:  refresh,
		tokens:   tokens,
		sender:   sender,
		cfg:      cfg,
		validate: validation.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) RegisterWorker(ctx context.Context, in RegisterInput) (account.Profile, error) {
	return s.register(ctx, in, account.RoleWorker)
}

// RegisterAdmin needs either an admin caller or the configured invite token. caller may be nil.
func (s *AccountService) RegisterAdmin(ctx context.Context, caller account.Principal, inviteToken string, in RegisterInput) (account.Profile, error) {
	if !s.mayRegisterAdmin(caller, inviteToken) {
		return account.Profile{}, permissionError("Admin registration requires an admin session or a valid invite token")
	}

	return s.register(ctx, in, account.RoleAdmin)
}

func (s *AccountService) mayRegisterAdmin(caller account.Principal, inviteToken string) bool {
	if _, ok := caller.(account.Admin); ok {
		return true
	}

	if s.cfg.AdminInviteToken == "" || inviteToken == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(inviteToken), []byte(s.cfg.AdminInviteToken)) == 1
}

func (s *AccountService) register(ctx context.Context, in RegisterInput, role account.Role) (account.Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validate.Struct(in); err != nil {
		fields, ok := validation.FieldErrors(err)
		if !ok {
			return account.Profile{}, fmt.Errorf("validate registration: %w", err)
		}
		return account.Profile{}, validationError("Invalid registration data", fields...)
	}

	if err := s.cfg.PasswordPolicy.Check(in.Password, in.Username, in.Email); err != nil {
		var perr *security.PolicyError
		if !errors.As(err, &perr) {
			return account.Profile{}, err
		}

		fields := make([]FieldError, 0, len(perr.Violations))
		for _, v := range perr.Violations {
			fields = append(fields, FieldError{Field: "password", Rule: "password_policy", Message: v})
		}
		return account.Profile{}, validationError("Password does not meet the requirements", fields...)
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return account.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, account.New(in.Username, in.Email, hash, role))
	if err != nil {
		if errors.Is(err, account.ErrUsernameTaken) {
			return account.Profile{}, validationError("A user with that username already exists.",
				FieldError{Field: "username", Rule: "unique", Message: "already exists"})
		}
		return account.Profile{}, fmt.Errorf("create account: %w", err)
	}

	s.log.InfoContext(ctx, "account registered", "account_id", created.ID, "role", created.Role)

	return created.Profile(), nil
}

// Login never says why it failed: unknown user, wrong password and internal token errors
// all surface as the same authentication error.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	fail := authenticationError(detailBadCredentials)

	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		security.BurnCompare(in.Password)
		return LoginResult{}, fail
	}

	acc, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		security.BurnCompare(in.Password)
		if !errors.Is(err, account.ErrNotFound) {
			s.log.ErrorContext(ctx, "login lookup failed", "err", err)
		}
		return LoginResult{}, fail
	}

	if err := security.CheckPassword(acc.PasswordHash, in.Password); err != nil {
		return LoginResult{}, fail
	}

	pair, err := s.issuePair(ctx, acc)
	if err != nil {
		s.log.ErrorContext(ctx, "login token issue failed", "account_id", acc.ID, "err", err)
		return LoginResult{}, fail
	}

	if err := s.users.TouchLastLogin(ctx, acc.ID, s.now()); err != nil {
		s.log.WarnContext(ctx, "touch last login failed", "account_id", acc.ID, "err", err)
	}

	return LoginResult{TokenPair: pair, User: acc.Profile()}, nil
}

func (s *AccountService) issuePair(ctx context.Context, acc account.Account) (TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(acc.ID, acc.Username, string(acc.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	raw, jti, expiresAt, err := s.tokens.GenerateRefreshToken(acc.ID, acc.Username, string(acc.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	err = s.refresh.Create(ctx, session.RefreshToken{
		ID:        jti,
		UserID:    acc.ID,
		TokenHash: s.tokens.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenPair{Access: access, Refresh: raw}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair is issued.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	fail := authenticationError(detailBadRefreshToken)

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, fail
	}

	acc, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return TokenPair{}, fail
		}
		return TokenPair{}, fmt.Errorf("load account: %w", err)
	}

	raw, jti, expiresAt, err := s.tokens.GenerateRefreshToken(acc.ID, acc.Username, string(acc.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	next := session.RefreshToken{
		ID:        jti,
		UserID:    acc.ID,
		TokenHash: s.tokens.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}

	if _, err := s.refresh.Rotate(ctx, claims.JTI, s.tokens.HashRefreshToken(refreshToken), next); err != nil {
		if isRefreshRejection(err) {
			s.log.WarnContext(ctx, "refresh rejected", "account_id", acc.ID, "reason", err.Error())
			return TokenPair{}, fail
		}
		return TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := s.tokens.GenerateAccessToken(acc.ID, acc.Username, string(acc.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	return TokenPair{Access: access, Refresh: raw}, nil
}

func isRefreshRejection(err error) bool {
	return errors.Is(err, session.ErrRefreshTokenNotFound) ||
		errors.Is(err, session.ErrRefreshTokenRevoked) ||
		errors.Is(err, session.ErrRefreshTokenExpired) ||
		errors.Is(err, session.ErrRefreshTokenMismatch)
}

// Logout revokes the presented refresh token. It never fails towards the client.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}

	if err := s.refresh.Revoke(ctx, claims.JTI); err != nil && !errors.Is(err, session.ErrRefreshTokenNotFound) {
		s.log.WarnContext(ctx, "logout revoke failed", "account_id", claims.UserID, "err", err)
	}
}

// RequestPasswordReset mails a reset link to the WORKER account with this email.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)

	if err := s.validate.Var(email, "required,email"); err != nil {
		rule := "email"
		if email == "" {
			rule = "required"
		}
		return "", validationError("Enter a valid email address.",
			FieldError{Field: "email", Rule: rule, Message: validation.Message(rule, "")})
	}

	acc, err := s.users.GetByEmailAndRole(ctx, email, account.RoleWorker)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return "", fmt.Errorf("lookup reset account: %w", err)
		}
		if s.cfg.RevealUnknownResetEmail {
			return "", validationError("No worker account found with this email.",
				FieldError{Field: "email", Rule: "exists", Message: "no worker account uses this email"})
		}
		s.log.InfoContext(ctx, "password reset requested for unknown email")
		return detailResetSent, nil
	}

	token, err := s.tokens.IssueResetToken(acc)
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}

	link := ResetLink(s.cfg.ResetURL, acc.ID, token)
	msg := notifications.PasswordResetMessage(acc.Email, acc.Username, link, s.cfg.ResetTTL)

	if err := s.sender.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("send reset email: %w", err)
	}

	s.log.InfoContext(ctx, "password reset sent", "account_id", acc.ID)

	return detailResetSent, nil
}

// ResetLink builds {base}/{base64url(accountID)}/{token}.
func ResetLink(base, accountID, token string) string {
	return strings.TrimRight(base, "/") + "/" + utils.EncodeUID(accountID) + "/" + token
}

func (s *AccountService) ConfirmPasswordReset(ctx context.Context, in ResetConfirmInput) (string, error) {
	if err := s.validate.Struct(in); err != nil {
		fields, ok := validation.FieldErrors(err)
		if !ok {
			return "", fmt.Errorf("validate reset: %w", err)
		}
		return "", validationError("Invalid reset data", fields...)
	}

	if len([]rune(in.NewPassword)) < s.cfg.ResetMinLength {
		param := fmt.Sprint(s.cfg.ResetMinLength)
		return "", validationError("Invalid reset data",
			FieldError{Field: "new_password", Rule: "min", Param: param, Message: validation.Message("min", param)})
	}
	if len(in.NewPassword) > security.MaxPasswordBytes {
		param := fmt.Sprint(security.MaxPasswordBytes)
		return "", validationError("Invalid reset data",
			FieldError{Field: "new_password", Rule: "max", Param: param, Message: validation.Message("max", param)})
	}

	invalid := validationError(detailResetLinkInvalid)

	id, err := utils.DecodeUID(in.UID)
	if err != nil {
		return "", invalid
	}

	acc, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", invalid
		}
		return "", fmt.Errorf("load reset account: %w", err)
	}
	if acc.Role != account.RoleWorker {
		return "", invalid
	}

	if err := s.tokens.VerifyResetToken(acc, in.Token); err != nil {
		return "", invalid
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.SetPassword(ctx, acc.ID, hash); err != nil {
		return "", fmt.Errorf("set password: %w", err)
	}

	if err := s.refresh.RevokeAllForUser(ctx, acc.ID); err != nil {
		s.log.WarnContext(ctx, "revoke sessions after reset failed", "account_id", acc.ID, "err", err)
	}

	s.log.InfoContext(ctx, "password reset completed", "account_id", acc.ID)

	return detailResetComplete, nil
}
