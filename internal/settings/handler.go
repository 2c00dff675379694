package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boardworks/boardworks/internal/platform/httpx"
)

// Handler exposes settings over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the settings handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.effective)
	r.Get("/{category}", h.get)
	r.Put("/{category}", h.put)
	r.Delete("/{category}", h.reset)
}

func regionParam(r *http.Request) (uuid.UUID, error) {
	id, err := httpx.QueryUUID(r, "region_id")
	if err != nil || id == nil {
		return GlobalRegion, err
	}
	return *id, nil
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	values, err := h.service.Effective(r.Context(), regionID)
	if err != nil {
		h.fail(w, "resolve settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, values)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Get(r.Context(), regionID, Category(chi.URLParam(r, "category")))
	if err != nil {
		h.fail(w, "get setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		httpx.RespondError(w, fmt.Errorf("%w: body must be a JSON document", httpx.ErrValidation))
		return
	}
	doc, err := h.service.Put(r.Context(), regionID, Category(chi.URLParam(r, "category")), body)
	if err != nil {
		h.fail(w, "put setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Reset(r.Context(), regionID, Category(chi.URLParam(r, "category"))); err != nil {
		h.fail(w, "reset setting", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
