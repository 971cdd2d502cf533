package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fetcharr/fetcharr/internal/data"
	"github.com/fetcharr/fetcharr/internal/events"
	"github.com/fetcharr/fetcharr/internal/manager"
	"github.com/fetcharr/fetcharr/internal/provider"
)

// DownloadService is the slice of the manager the handlers consume.
type DownloadService interface {
	List(ctx context.Context) (data.Downloads, error)
	Get(ctx context.Context, id string) (*data.Download, error)
	Start(ctx context.Context, req manager.StartRequest) (*data.Download, error)
	Pause(ctx context.Context, id string) (bool, error)
	Resume(ctx context.Context, id string) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
	InitUpdate(ctx context.Context) (events.Update, error)
}

// Searcher is the aggregator capability.
type Searcher interface {
	Search(ctx context.Context, q provider.Query) []data.TorrentResult
}

type Handler struct {
	l   *slog.Logger
	svc DownloadService
	agg Searcher
	bus *events.Broadcaster
}

func NewHandler(l *slog.Logger, svc DownloadService, agg Searcher, bus *events.Broadcaster) *Handler {
	return &Handler{l: l, svc: svc, agg: agg, bus: bus}
}

type searchResponse struct {
	Query   string               `json:"query"`
	Results []data.TorrentResult `json:"results"`
	Total   int                  `json:"total"`
}

// Search handles GET /v1/search?title=&year=&type=&quality=. The quality
// filter is applied here, on top of the aggregate, never inside it.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	title := params.Get("title")
	if title == "" {
		markErr(w, ErrTitleParam)
		http.Error(w, ErrTitleParam.Error(), http.StatusBadRequest)
		return
	}
	q := provider.Query{Title: title, MediaType: params.Get("type")}
	if y := params.Get("year"); y != "" {
		if year, err := strconv.Atoi(y); err == nil {
			q.Year = year
		}
	}

	results := h.agg.Search(r.Context(), q)
	if qualities, ok := params["quality"]; ok {
		results = provider.FilterQuality(results, qualities)
	}

	if err := writeJSON(w, http.StatusOK, searchResponse{Query: title, Results: results, Total: len(results)}); err != nil {
		markErr(w, err)
	}
}

func (h *Handler) GetDownloads(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to list downloads", http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, list); err != nil {
		markErr(w, err)
	}
}

func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		markErr(w, err)
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := writeJSON(w, http.StatusOK, d); err != nil {
		markErr(w, err)
	}
}

// StartDownload handles POST /v1/downloads. A submission that fails at
// the download client still returns the persisted error-state entity so
// the caller sees both the failure and the durable record.
func (h *Handler) StartDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyStart{}).(manager.StartRequest)
	if !ok {
		markErr(w, ErrStartCtx)
		http.Error(w, ErrStartCtx.Error(), http.StatusInternalServerError)
		return
	}

	d, err := h.svc.Start(r.Context(), req)
	if err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrInvalidSource) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if d != nil {
			// recorded on the entity and re-raised: report both
			_ = writeJSON(w, http.StatusBadGateway, d)
			return
		}
		http.Error(w, "failed to start download", http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusCreated, d); err != nil {
		markErr(w, err)
	}
}

// UpdateDownload handles PATCH /v1/downloads/{id} with {"action":
// "pause"|"resume"}. An entity with no resolved hash yet yields 409, not
// an error payload.
func (h *Handler) UpdateDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	action, ok := r.Context().Value(ctxKeyAction{}).(string)
	if !ok {
		markErr(w, ErrActionCtx)
		http.Error(w, ErrActionCtx.Error(), http.StatusInternalServerError)
		return
	}

	var (
		done bool
		err  error
	)
	switch action {
	case "pause":
		done, err = h.svc.Pause(r.Context(), id)
	case "resume":
		done, err = h.svc.Resume(r.Context(), id)
	}
	if err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, data.ErrBadStatus) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "download client error", http.StatusBadGateway)
		return
	}
	if !done {
		http.Error(w, "download has no resolved info hash yet", http.StatusConflict)
		return
	}
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		markErr(w, err)
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := writeJSON(w, http.StatusOK, d); err != nil {
		markErr(w, err)
	}
}

// CancelDownload handles DELETE /v1/downloads/{id}.
func (h *Handler) CancelDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	done, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel", http.StatusInternalServerError)
		return
	}
	if !done {
		http.Error(w, "download has no resolved info hash yet", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
