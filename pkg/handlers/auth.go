package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/auth"
	"github.com/examaid-app/examaid-engine/pkg/identity"
)

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// GoogleLoginRequest is the request body for signing in with a Google
// ID token.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// PasswordResetRequest is the request body for a reset mail.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// AuthHandler handles authentication-related HTTP requests by delegating
// to the identity gateway.
type AuthHandler struct {
	gateway identity.Gateway
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(gateway identity.Gateway, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/login/google", h.LoginWithGoogle)
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/reset-password", h.ResetPassword)
	mux.HandleFunc("POST /api/auth/logout", authMiddleware.RequireAuth(h.Logout))
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(h.GetMe))
	mux.HandleFunc("GET /api/auth/session/watch", authMiddleware.RequireAuth(h.WatchSession))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Email == "" || req.Password == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_credentials", "Email and password are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, err := h.gateway.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, session); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// LoginWithGoogle handles POST /api/auth/login/google
func (h *AuthHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.IDToken == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_token", "Google ID token is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, err := h.gateway.SignInWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, session); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_fields", "Email, password and display name are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, err := h.gateway.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, session); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Email == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_email", "Email is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.gateway.SendPasswordReset(r.Context(), req.Email); err != nil {
		h.writeIdentityError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]bool{"success": true}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.GetToken(r.Context())

	if err := h.gateway.SignOut(r.Context(), token); err != nil {
		h.writeIdentityError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]bool{"success": true}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// GetMe handles GET /api/auth/me
// Resolves the current session token to its user via the gateway.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.GetToken(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Not authenticated"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.gateway.CurrentSession(r.Context(), token)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// WatchSession handles GET /api/auth/session/watch
// Streams session changes as server-sent events: the signed-in user after
// every sign-in, JSON null after every sign-out. The stream stays open
// until the client disconnects.
func (h *AuthHandler) WatchSession(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		if err := ErrorResponse(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	changes := h.gateway.ObserveSession(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case user, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(user)
			if err != nil {
				h.logger.Error("Failed to encode session change", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// writeIdentityError maps a gateway failure to a response. Identity
// errors keep the gateway's localized message; anything else is opaque.
func (h *AuthHandler) writeIdentityError(w http.ResponseWriter, err error) {
	if apperrors.IsIdentity(err) {
		if werr := ErrorResponse(w, http.StatusUnauthorized, "identity_failure", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
		return
	}

	h.logger.Error("Identity gateway call failed", zap.Error(err))
	if werr := ErrorResponse(w, http.StatusBadGateway, "identity_unavailable", "Identity service unavailable"); werr != nil {
		h.logger.Error("Failed to write error response", zap.Error(werr))
	}
}
