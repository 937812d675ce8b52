package access

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-access/internal/shared"
)

// TokenVerifier decodes and verifies a bearer token into its claim set.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Handler wires the access-control HTTP endpoints.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	verifier        TokenVerifier
	bootstrapSecret string
	validator       *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, verifier TokenVerifier, bootstrapSecret string) *Handler {
	return &Handler{
		logger:          logger,
		service:         service,
		verifier:        verifier,
		bootstrapSecret: bootstrapSecret,
		validator:       validator.New(),
	}
}

// MountRoutes registers access routes on the provided router. Preflight
// OPTIONS requests are answered by the CORS middleware before routing; any
// other non-POST method falls through to chi's 405 handling.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/bootstrap-admin", h.handleBootstrap)
	r.Post("/set-role", h.handleSetRole)
	r.Post("/update-permissions", h.handleUpdatePermissions)
}

type bootstrapRequest struct {
	UID string `json:"uid" validate:"required"`
}

type setRoleRequest struct {
	UID  string `json:"uid" validate:"required"`
	Role string `json:"role" validate:"required"`
}

type updatePermissionsRequest struct {
	UID         string                     `json:"uid" validate:"required"`
	Permissions map[string]json.RawMessage `json:"permissions" validate:"required,min=1"`
}

const bootstrapSecretHeader = "x-bootstrap-secret"

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(bootstrapSecretHeader)
	if h.bootstrapSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.bootstrapSecret)) != 1 {
		shared.WriteError(w, http.StatusUnauthorized, "invalid bootstrap secret")
		return
	}

	var req bootstrapRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Bootstrap(r.Context(), req.UID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.APIResponse{Success: true, Message: "admin bootstrapped"})
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req setRoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	role, err := h.service.AssignRole(r.Context(), actor, req.UID, req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.APIResponse{
		Success: true,
		Message: "role " + string(role) + " assigned to " + req.UID,
	})
}

func (h *Handler) handleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req updatePermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}

	merged, err := h.service.UpdatePermissions(r.Context(), actor, req.UID, req.Permissions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.APIResponse{
		Success:     true,
		Message:     "permissions updated for " + req.UID,
		Permissions: merged,
	})
}

// authenticate extracts and verifies the bearer token. It writes a 401 and
// returns ok=false before any store access when the header is missing or the
// token does not verify.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (Claims, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		shared.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
		return Claims{}, false
	}
	claims, err := h.verifier.Verify(r.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		return Claims{}, false
	}
	return claims, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "missing required fields")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		shared.WriteError(w, http.StatusForbidden, "admin role required")
	case errors.Is(err, shared.ErrNotFound):
		shared.WriteError(w, http.StatusNotFound, "no access record for user")
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrUnknownModule), errors.Is(err, ErrInvalidGrant):
		shared.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		if h.logger != nil {
			h.logger.Error("access operation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		shared.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
