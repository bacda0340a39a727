package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/rpupo63/portfolio-admin-backend/errs"
)

// Session is what a successful sign-in hands back to the admin client.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

// Principal is the verified identity behind an access token.
type Principal struct {
	UserID string
	Email  string
	Role   string
}

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Verify(accessToken string) (Principal, error)
}

type SupabaseAuthConfig struct {
	// ProjectURL is https://<ref>.supabase.co
	ProjectURL string
	AnonKey    string
	JWTSecret  string
}

// SupabaseAuth signs in against Supabase Auth and verifies its HS256 tokens
// locally with the project's JWT secret.
type SupabaseAuth struct {
	signIn    func(email, password string) (*types.TokenResponse, error)
	signOut   func(accessToken string) error
	jwtSecret []byte
	now       func() time.Time
	logger    zerolog.Logger
}

func NewSupabaseAuth(cfg SupabaseAuthConfig) (*SupabaseAuth, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	client := auth.New("", cfg.AnonKey).
		WithCustomAuthURL(strings.TrimRight(cfg.ProjectURL, "/") + "/auth/v1")

	return &SupabaseAuth{
		signIn: client.SignInWithEmailPassword,
		signOut: func(accessToken string) error {
			return client.WithToken(accessToken).Logout()
		},
		jwtSecret: []byte(cfg.JWTSecret),
		now:       time.Now,
		logger:    log.With().Str("component", "supabaseAuth").Logger(),
	}, nil
}

func (a *SupabaseAuth) SignIn(ctx context.Context, email, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	resp, err := a.signIn(email, password)
	if err != nil {
		a.logger.Warn().Err(err).Str("email", email).Msg("sign in rejected")
		return Session{}, errs.NewInvalidCredentialsError(err)
	}
	return Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    a.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		UserID:       resp.User.ID.String(),
		Email:        resp.User.Email,
	}, nil
}

func (a *SupabaseAuth) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.signOut(accessToken); err != nil {
		return errs.NewAuthError("sign out", err)
	}
	return nil
}

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (a *SupabaseAuth) Verify(accessToken string) (Principal, error) {
	if accessToken == "" {
		return Principal{}, errs.NewMissingTokenError()
	}

	var claims supabaseClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, errs.NewExpiredTokenError()
		}
		return Principal{}, errs.NewInvalidTokenError(err)
	}
	if claims.Subject == "" {
		return Principal{}, errs.NewInvalidTokenError(errors.New("token has no subject"))
	}

	return Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
