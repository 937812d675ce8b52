package media

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-access/internal/access"
	"github.com/meridian-pos/meridian-access/internal/shared"
)

// Handler exposes the media URL-signing endpoints. Both are stateless
// proxies: any caller with a valid bearer token may sign, regardless of role.
type Handler struct {
	logger    *slog.Logger
	signer    URLSigner
	verifier  access.TokenVerifier
	validator *validator.Validate
}

// NewHandler constructs a media Handler.
func NewHandler(logger *slog.Logger, signer URLSigner, verifier access.TokenVerifier) *Handler {
	return &Handler{
		logger:    logger,
		signer:    signer,
		verifier:  verifier,
		validator: validator.New(),
	}
}

// MountRoutes registers media routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/upload-url", h.handleUploadURL)
	r.Post("/download-url", h.handleDownloadURL)
}

type uploadURLRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type downloadURLRequest struct {
	Key string `json:"key" validate:"required"`
}

func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if !h.authenticate(w, r) {
		return
	}
	var req uploadURLRequest
	if !h.decode(w, r, &req) {
		return
	}
	signed, err := h.signer.UploadURL(r.Context(), req.Filename, req.ContentType)
	if err != nil {
		h.logger.Error("presign upload", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.APIResponse{Success: true, Message: "upload url issued", Data: signed})
}

func (h *Handler) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	if !h.authenticate(w, r) {
		return
	}
	var req downloadURLRequest
	if !h.decode(w, r, &req) {
		return
	}
	signed, err := h.signer.DownloadURL(r.Context(), req.Key)
	if err != nil {
		h.logger.Error("presign download", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.APIResponse{Success: true, Message: "download url issued", Data: signed})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		shared.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
		return false
	}
	if _, err := h.verifier.Verify(r.Context(), strings.TrimPrefix(header, "Bearer ")); err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		return false
	}
	return true
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
