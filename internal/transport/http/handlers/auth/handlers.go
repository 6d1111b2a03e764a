package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/users"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password, mfaCode string) (auth.LoginResult, error)
	Logout(ctx context.Context, user auth.UserContext) error
	Refresh(ctx context.Context, token string) (string, error)
	Validate(ctx context.Context, token string) (auth.Profile, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (int64, error)
	SetupMFA(ctx context.Context, user auth.UserContext) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, user auth.UserContext, code string) error
	DisableMFA(ctx context.Context, user auth.UserContext, code string) error
}

type Registrar interface {
	Register(ctx context.Context, in users.CreateInput) (users.User, error)
	Create(ctx context.Context, actorID int64, in users.CreateInput) (users.User, error)
}

type Auditor interface {
	Record(ctx context.Context, meta audit.Meta, action, entityType string, entityID int64, before, after any) error
}

type Handler struct {
	Service Service
	Users   Registrar
	Audit   Auditor
}

func NewHandler(service Service, registrar Registrar, auditor Auditor) *Handler {
	return &Handler{Service: service, Users: registrar, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/register", h.HandleRegister)
		r.Post("/refresh", h.HandleRefresh)
		r.Post("/validate", h.HandleValidate)
		r.Post("/forgot-password", h.HandleForgotPassword)
		r.Post("/reset-password", h.HandleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.HandleLogout)
			r.Post("/change-password", h.HandleChangePassword)
			r.Post("/mfa/setup", h.HandleMFASetup)
			r.Post("/mfa/enable", h.HandleMFAEnable)
			r.Post("/mfa/disable", h.HandleMFADisable)
		})
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Role      auth.Role `json:"role"`
	CompanyID *int64    `json:"companyId,omitempty"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password_strength"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password_strength"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", err.Error(), reqID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", err.Error(), reqID)
	case errors.Is(err, auth.ErrSessionExpired):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", err.Error(), reqID)
	case errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "weak_password", err.Error(), reqID)
	case errors.Is(err, auth.ErrResetTokenInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_token", err.Error(), reqID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", err.Error(), reqID)
	case errors.Is(err, auth.ErrMFANotSetUp):
		api.Fail(w, http.StatusConflict, "mfa_not_setup", err.Error(), reqID)
	case errors.Is(err, users.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), reqID)
	case errors.Is(err, users.ErrInvalidEmail), errors.Is(err, users.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	default:
		zap.S().Warnw("auth handler failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", reqID)
	}
}

// HandleLogin godoc
// @Summary Log in
// @Description Returns a bearer token. Accounts with MFA enabled also need mfaCode.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} loginResponse
// @Failure 401 {object} api.Envelope
// @Router /auth/login [post]
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password, payload.MFACode)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, loginResponse{
		Token:     result.Token,
		Type:      result.Type,
		ID:        result.Profile.ID,
		Email:     result.Profile.Email,
		Firstname: result.Profile.Firstname,
		Lastname:  result.Profile.Lastname,
		Role:      result.Profile.Role,
		CompanyID: result.Profile.CompanyID,
	}, middleware.GetRequestID(r.Context()))
}

// HandleRegister godoc
// @Summary Create an account
// @Description Public sign-ups always get the CLIENT role; id_role is honoured for administrators only.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body users.CreateInput true "Account"
// @Success 201 {object} users.User
// @Failure 409 {object} api.Envelope
// @Router /auth/register [post]
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var payload users.CreateInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}

	var (
		created users.User
		err     error
	)
	if caller, ok := middleware.GetUser(r.Context()); ok && caller.Role == auth.RoleAdmin {
		created, err = h.Users.Create(r.Context(), caller.UserID, payload)
	} else {
		created, err = h.Users.Register(r.Context(), payload)
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// HandleLogout godoc
// @Summary Revoke the current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} api.Envelope
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.Logout(r.Context(), user); err != nil {
		zap.S().Warnw("logout session revoke failed", "userId", user.UserID, "err", err)
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

// HandleRefresh godoc
// @Summary Rotate a session and issue a new token
// @Description The token is read from the body, falling back to the Authorization header.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body tokenRequest false "Token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} api.Envelope
// @Router /auth/refresh [post]
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := h.tokenFrom(r)
	if token == "" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	fresh, err := h.Service.Refresh(r.Context(), token)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"token": fresh, "type": "Bearer"}, middleware.GetRequestID(r.Context()))
}

// HandleValidate godoc
// @Summary Check a token and return its user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body tokenRequest false "Token"
// @Success 200 {object} auth.Profile
// @Failure 401 {object} api.Envelope
// @Router /auth/validate [post]
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	token := h.tokenFrom(r)
	if token == "" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	profile, err := h.Service.Validate(r.Context(), token)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

// tokenFrom prefers a JSON body {token} and falls back to the bearer header.
func (h *Handler) tokenFrom(r *http.Request) string {
	var payload tokenRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && payload.Token != "" {
			return payload.Token
		}
	}
	return middleware.BearerToken(r)
}

// HandleChangePassword godoc
// @Summary Change the caller's password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "Passwords"
// @Success 200 {object} api.Envelope
// @Failure 400 {object} api.Envelope
// @Failure 401 {object} api.Envelope
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload changePasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), user.UserID, payload.OldPassword, payload.NewPassword); err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, user.UserID, audit.ActionAuthPasswordChange)
	api.Success(w, map[string]string{"status": "password_changed"}, middleware.GetRequestID(r.Context()))
}

// HandleForgotPassword godoc
// @Summary Email a password reset token
// @Description Always succeeds so the endpoint cannot be used to probe accounts. The current password keeps working until the token is redeemed.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body forgotPasswordRequest true "Email"
// @Success 200 {object} api.Envelope
// @Router /auth/forgot-password [post]
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload forgotPasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.Service.ForgotPassword(r.Context(), payload.Email); err != nil {
		zap.S().Warnw("forgot password failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, middleware.GetRequestID(r.Context()))
}

// HandleResetPassword godoc
// @Summary Redeem a reset token
// @Description Sets the new password and revokes every session of the account. Tokens are single use.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body resetPasswordRequest true "Token and new password"
// @Success 200 {object} api.Envelope
// @Failure 400 {object} api.Envelope
// @Router /auth/reset-password [post]
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	userID, err := h.Service.ResetPassword(r.Context(), payload.Token, payload.NewPassword)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, userID, audit.ActionAuthPasswordReset)
	api.Success(w, map[string]string{"status": "password_reset"}, middleware.GetRequestID(r.Context()))
}

// HandleMFASetup godoc
// @Summary Generate a TOTP secret
// @Tags Authentication
// @Produce json
// @Success 200 {object} auth.MFASetup
// @Security BearerAuth
// @Router /auth/mfa/setup [post]
func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	setup, err := h.Service.SetupMFA(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, setup, middleware.GetRequestID(r.Context()))
}

// HandleMFAEnable godoc
// @Summary Turn MFA on after confirming a code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body mfaCodeRequest true "TOTP code"
// @Success 200 {object} api.Envelope
// @Security BearerAuth
// @Router /auth/mfa/enable [post]
func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

// HandleMFADisable godoc
// @Summary Turn MFA off after confirming a code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body mfaCodeRequest true "TOTP code"
// @Success 200 {object} api.Envelope
// @Security BearerAuth
// @Router /auth/mfa/disable [post]
func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	toggle, action, status := h.Service.DisableMFA, audit.ActionAuthMFADisable, "mfa_disabled"
	if enable {
		toggle, action, status = h.Service.EnableMFA, audit.ActionAuthMFAEnable, "mfa_enabled"
	}
	if err := toggle(r.Context(), user, payload.Code); err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, user.UserID, action)
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) record(r *http.Request, userID int64, action string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), audit.MetaFromContext(r.Context(), userID), action, "user", userID, nil, nil); err != nil {
		zap.S().Warnw("audit record failed", "action", action, "err", err)
	}
}
