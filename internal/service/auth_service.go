package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"jewelflow/internal/event"
	"jewelflow/internal/model"
	"jewelflow/pkg/apierror"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	minPasswordLength = 8
	blankField        = "This field may not be blank."
)

// LockoutPolicy locks an account for Duration after MaxAttempts failed
// logins in a row.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

type AuthService struct {
	users      UserStore
	tokens     TokenStore
	bus        event.Bus
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lockout    LockoutPolicy
	cost       int
	now        func() time.Time
}

func NewAuthService(jwtSecret string, accessTTL time.Duration, refreshTTL time.Duration, users UserStore, tokens TokenStore, bus event.Bus) (*AuthService, error) {
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if users == nil || tokens == nil {
		return nil, errors.New("user and token stores are required")
	}
	if bus == nil {
		bus = event.Nop{}
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		bus:        bus,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		lockout:    LockoutPolicy{MaxAttempts: 5, Duration: 15 * time.Minute},
		cost:       12,
		now:        time.Now,
	}, nil
}

func (s *AuthService) SetLockoutPolicy(p LockoutPolicy) {
	if p.MaxAttempts > 0 && p.Duration > 0 {
		s.lockout = p
	}
}

func (s *AuthService) SetPasswordCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.cost = cost
	}
}

// Login checks credentials and issues a token pair. Unknown emails answer
// 404, wrong passwords 401 and locked accounts 403.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	email = strings.TrimSpace(email)
	fields := map[string][]string{}
	if email == "" {
		fields["email"] = []string{blankField}
	}
	if password == "" {
		fields["password"] = []string{blankField}
	}
	if len(fields) > 0 {
		return model.TokenPair{}, apierror.Validation("invalid login", fields)
	}

	account, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.New("account_not_found", "No account found with the given email.", "", http.StatusNotFound)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	now := s.now().UTC()
	if account.LockedUntil != nil && now.Before(*account.LockedUntil) {
		return model.TokenPair{}, lockedError(*account.LockedUntil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, s.recordFailure(ctx, account, now)
	}

	if account.FailedLoginAttempts > 0 || account.LockedUntil != nil {
		if err := s.users.ResetFailedAttempts(ctx, account.ID); err != nil {
			return model.TokenPair{}, err
		}
	}

	pair, err := s.issueTokenPair(ctx, account.User)
	if err != nil {
		return model.TokenPair{}, err
	}

	s.bus.Publish(event.New(event.TypeUserLoggedIn, account.ID, map[string]any{"email": account.Email}))
	return pair, nil
}

func (s *AuthService) recordFailure(ctx context.Context, account model.Account, now time.Time) error {
	attempts, err := s.users.IncrementFailedAttempts(ctx, account.ID)
	if err != nil {
		return err
	}

	s.bus.Publish(event.New(event.TypeUserLoginFailed, account.ID, map[string]any{"attempts": attempts}))

	if attempts < s.lockout.MaxAttempts {
		return apierror.New("no_active_account", "No active account found with the given credentials", "", http.StatusUnauthorized)
	}

	until := now.Add(s.lockout.Duration)
	if err := s.users.LockAccount(ctx, account.ID, until); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, account.ID); err != nil {
		return err
	}

	slog.Warn("account locked", "user_id", account.ID, "until", until)
	s.bus.Publish(event.New(event.TypeUserLocked, account.ID, map[string]any{"email": account.Email, "until": until}))
	return lockedError(until)
}

func lockedError(until time.Time) error {
	return apierror.New("account_locked", "Account locked due to too many failed login attempts.", "locked until "+until.Format(time.RFC3339), http.StatusForbidden)
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if fields := validateRegistration(req); len(fields) > 0 {
		return model.User{}, apierror.Validation("invalid registration", fields)
	}

	return s.createAccount(ctx, req, "staff")
}

// SeedAdmin creates an admin account unless the email is already taken.
func (s *AuthService) SeedAdmin(ctx context.Context, email string, password string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return err
	}

	_, err := s.createAccount(ctx, model.RegisterRequest{
		FirstName: "Admin",
		LastName:  "User",
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  password,
	}, "admin")
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	slog.Info("seeded admin account", "email", email)
	return nil
}

func (s *AuthService) createAccount(ctx context.Context, req model.RegisterRequest, role string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := model.Account{
		User: model.User{
			ID:        uuid.NewString(),
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      role,
			CreatedAt: now,
		},
		PasswordHash: string(hash),
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, &apierror.APIError{
				Kind:       apierror.KindConflict,
				Code:       "unique",
				Message:    "user with this email already exists.",
				Fields:     map[string][]string{"email": {"user with this email already exists."}},
				HTTPStatus: http.StatusConflict,
			}
		}
		return model.User{}, err
	}

	s.bus.Publish(event.New(event.TypeUserRegistered, account.ID, map[string]any{"email": account.Email, "role": role}))
	return account.User, nil
}

func validateRegistration(req model.RegisterRequest) map[string][]string {
	fields := map[string][]string{}

	if req.FirstName == "" {
		fields["first_name"] = []string{blankField}
	}
	if req.LastName == "" {
		fields["last_name"] = []string{blankField}
	}

	switch {
	case req.Email == "":
		fields["email"] = []string{blankField}
	case !validEmail(req.Email):
		fields["email"] = []string{"Enter a valid email address."}
	}

	if msgs := passwordProblems(req.Password); len(msgs) > 0 {
		fields["password"] = msgs
	}

	return fields
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

func passwordProblems(password string) []string {
	if password == "" {
		return []string{blankField}
	}

	var msgs []string
	if len(password) < minPasswordLength {
		msgs = append(msgs, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasDigit || !hasLetter {
		msgs = append(msgs, "This password must contain both letters and numbers.")
	}
	return msgs
}

// Refresh issues a new access token. The refresh token stays valid until it
// expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AccessToken, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return model.AccessToken{}, apierror.Validation("invalid refresh", map[string][]string{"refresh": {blankField}})
	}

	claims, err := s.ValidateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return model.AccessToken{}, err
	}

	ownerID, err := s.tokens.Validate(ctx, refreshToken)
	if errors.Is(err, model.ErrTokenNotFound) || (err == nil && ownerID != claims.UserID) {
		return model.AccessToken{}, invalidToken()
	}
	if err != nil {
		return model.AccessToken{}, err
	}

	account, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AccessToken{}, invalidToken()
	}
	if err != nil {
		return model.AccessToken{}, err
	}

	access, err := s.signAccess(account.User, s.now().UTC())
	if err != nil {
		return model.AccessToken{}, err
	}

	s.bus.Publish(event.New(event.TypeTokenRefreshed, account.ID, nil))
	return model.AccessToken{Access: access}, nil
}

func invalidToken() error {
	return apierror.New("token_not_valid", "Token is invalid or expired", "", http.StatusUnauthorized)
}

func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, invalidToken()
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, invalidToken()
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, apierror.New("token_not_valid", "Given token not valid for any token type", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["user_id"].(string)
	claims.Email, _ = claimsMap["email"].(string)
	claims.FirstName, _ = claimsMap["first_name"].(string)
	claims.LastName, _ = claimsMap["last_name"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, invalidToken()
	}

	return claims, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	account, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.New("user_not_found", "User not found", userID, http.StatusNotFound)
	}
	if err != nil {
		return model.User{}, err
	}
	return account.User, nil
}

// CleanExpiredTokens removes expired refresh tokens every interval until ctx is done.
func (s *AuthService) CleanExpiredTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.tokens.CleanExpired(ctx)
			if err != nil {
				slog.Error("clean expired refresh tokens", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired refresh tokens removed", "count", removed)
			}
		}
	}
}

func (s *AuthService) issueTokenPair(ctx context.Context, user model.User) (model.TokenPair, error) {
	now := s.now().UTC()

	access, err := s.signAccess(user, now)
	if err != nil {
		return model.TokenPair{}, err
	}

	expiresAt := now.Add(s.refreshTTL)
	refresh, err := s.signToken(jwt.MapClaims{
		"user_id": user.ID,
		"typ":     tokenTypeRefresh,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.tokens.Store(ctx, refresh, user.ID, expiresAt); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) signAccess(user model.User, now time.Time) (string, error) {
	return s.signToken(jwt.MapClaims{
		"user_id":    user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"role":       user.Role,
		"typ":        tokenTypeAccess,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(s.accessTTL).Unix(),
	})
}

func (s *AuthService) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
