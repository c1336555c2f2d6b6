// Package identity is a stateless façade over the external identity
// provider. The engine never stores credentials or users; every operation
// delegates to the provider's REST API and failures carry the provider's
// message through to the user.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/config"
	"github.com/examaid-app/examaid-engine/pkg/logging"
	"github.com/examaid-app/examaid-engine/pkg/models"
)

// User-facing messages for identity failures, matching the mobile app.
const (
	MsgUserNotFound     = "Kullanıcı bulunamadı"
	MsgLoginFailed      = "Giriş başarısız"
	MsgRegisterFailed   = "Kullanıcı oluşturulamadı"
	MsgEmailNotVerified = "Giriş yapmadan önce e-posta adresini doğrulamalısın."
)

// Session is a successful sign-in: the gateway's user payload plus the
// session token the client presents on later requests.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Gateway defines the consumed identity operations.
type Gateway interface {
	// SignIn authenticates with email and password. Accounts with an
	// unverified email are rejected with a localized message.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignInWithGoogle exchanges a Google ID token for a session. The
	// unverified-email policy of SignIn applies here too.
	SignInWithGoogle(ctx context.Context, idToken string) (*Session, error)

	// Register creates an account with the given display name. The
	// gateway sends the verification mail.
	Register(ctx context.Context, email, password, displayName string) (*Session, error)

	// SignOut revokes the session token.
	SignOut(ctx context.Context, token string) error

	// SendPasswordReset asks the gateway to mail a reset link.
	SendPasswordReset(ctx context.Context, email string) error

	// CurrentSession resolves a session token to its user.
	CurrentSession(ctx context.Context, token string) (*models.User, error)

	// ObserveSession delivers the signed-in user after every sign-in and
	// nil after every sign-out, until ctx is cancelled.
	ObserveSession(ctx context.Context) <-chan *models.User
}

// httpGateway implements Gateway over the provider's REST API.
type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger

	sessions *sessionBroadcaster
}

// NewGateway creates an identity gateway client from configuration.
func NewGateway(cfg *config.IdentityConfig, logger *zap.Logger) Gateway {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &httpGateway{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		sessions: newSessionBroadcaster(),
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleSignInRequest struct {
	IDToken string `json:"idToken"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// sessionPayload is the gateway's wire form of a session.
type sessionPayload struct {
	User struct {
		ID               string `json:"id"`
		Email            string `json:"email"`
		DisplayName      string `json:"displayName"`
		PhotoURL         string `json:"photoUrl"`
		SubscriptionType string `json:"subscriptionType"`
		EmailVerified    bool   `json:"emailVerified"`
		CreatedAt        int64  `json:"createdAt"`
		LastLoginAt      int64  `json:"lastLoginAt"`
	} `json:"user"`
	Token string `json:"token"`
}

func (p *sessionPayload) toSession() *Session {
	return &Session{
		User: models.User{
			ID:               p.User.ID,
			Email:            p.User.Email,
			DisplayName:      p.User.DisplayName,
			PhotoURL:         p.User.PhotoURL,
			SubscriptionType: models.ParseSubscriptionType(p.User.SubscriptionType),
			CreatedAt:        time.UnixMilli(p.User.CreatedAt),
			LastLoginAt:      time.UnixMilli(p.User.LastLoginAt),
		},
		Token: p.Token,
	}
}

func (g *httpGateway) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var payload sessionPayload
	err := g.post(ctx, "/v1/sessions", signInRequest{Email: email, Password: password}, &payload, MsgLoginFailed)
	if err != nil {
		return nil, err
	}

	return g.settleSignIn(ctx, &payload)
}

func (g *httpGateway) SignInWithGoogle(ctx context.Context, idToken string) (*Session, error) {
	var payload sessionPayload
	err := g.post(ctx, "/v1/sessions/google", googleSignInRequest{IDToken: idToken}, &payload, MsgLoginFailed)
	if err != nil {
		return nil, err
	}

	return g.settleSignIn(ctx, &payload)
}

// settleSignIn applies the shared post-authentication policy: reject
// sessions for unverified accounts and announce the new session.
func (g *httpGateway) settleSignIn(ctx context.Context, payload *sessionPayload) (*Session, error) {
	if payload.User.ID == "" {
		return nil, apperrors.NewIdentityError(MsgUserNotFound)
	}

	session := payload.toSession()

	if !payload.User.EmailVerified {
		// Mirror the app's policy: an unverified account never gets a
		// session. Best effort revoke, then reject.
		if err := g.SignOut(ctx, session.Token); err != nil {
			g.logger.Warn("Failed to revoke unverified session",
				zap.String("user_id", session.User.ID))
		}
		g.logger.Warn("Sign-in blocked, email not verified",
			zap.String("user_id", session.User.ID))
		return nil, apperrors.NewIdentityError(MsgEmailNotVerified)
	}

	g.logger.Info("Sign-in successful", zap.String("user_id", session.User.ID))
	g.sessions.publish(&session.User)

	return session, nil
}

func (g *httpGateway) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	var payload sessionPayload
	err := g.post(ctx, "/v1/accounts", registerRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}, &payload, MsgRegisterFailed)
	if err != nil {
		return nil, err
	}

	if payload.User.ID == "" {
		return nil, apperrors.NewIdentityError(MsgRegisterFailed)
	}

	session := payload.toSession()
	g.logger.Info("Registration successful", zap.String("user_id", session.User.ID))

	return session, nil
}

func (g *httpGateway) SignOut(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+"/v1/sessions/current", nil)
	if err != nil {
		return fmt.Errorf("failed to build sign-out request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	g.setAPIKey(req)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Sign-out request failed", zap.String("error", logging.SanitizeError(err)))
		return apperrors.NewIdentityError(MsgLoginFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperrors.NewIdentityError(gatewayMessage(resp.Body, MsgLoginFailed))
	}

	g.sessions.publish(nil)
	return nil
}

func (g *httpGateway) SendPasswordReset(ctx context.Context, email string) error {
	return g.post(ctx, "/v1/accounts/password-reset", passwordResetRequest{Email: email}, nil, MsgUserNotFound)
}

func (g *httpGateway) CurrentSession(ctx context.Context, token string) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/sessions/current", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	g.setAPIKey(req)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Session lookup failed", zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.NewIdentityError(MsgUserNotFound)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apperrors.NewIdentityError(gatewayMessage(resp.Body, MsgUserNotFound))
	}

	var payload sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if payload.User.ID == "" {
		return nil, apperrors.NewIdentityError(MsgUserNotFound)
	}

	session := payload.toSession()
	return &session.User, nil
}

func (g *httpGateway) ObserveSession(ctx context.Context) <-chan *models.User {
	return g.sessions.subscribe(ctx)
}

// post sends a JSON body and decodes the JSON response into out (when out
// is non-nil). Gateway errors become IdentityErrors carrying the
// gateway's own message, falling back to fallbackMsg.
func (g *httpGateway) post(ctx context.Context, path string, body, out interface{}, fallbackMsg string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.setAPIKey(req)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Identity gateway request failed",
			zap.String("path", path),
			zap.String("error", logging.SanitizeError(err)))
		return apperrors.NewIdentityError(fallbackMsg)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperrors.NewIdentityError(gatewayMessage(resp.Body, fallbackMsg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (g *httpGateway) setAPIKey(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("X-Api-Key", g.apiKey)
	}
}

// gatewayMessage extracts the gateway's error message from a failure
// response body, falling back when the body is unusable.
func gatewayMessage(body io.Reader, fallback string) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return fallback
	}
	if payload.Error.Message == "" {
		return fallback
	}
	return payload.Error.Message
}

// Ensure httpGateway implements Gateway at compile time.
var _ Gateway = (*httpGateway)(nil)
