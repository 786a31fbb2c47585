package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/jobs"
	"github.com/pable/rift-rewind/internal/model"
)

type handlers struct {
	d Deps
}

type identityRequest struct {
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
	Region   string `json:"region"`
}

func (req identityRequest) identity() model.Identity {
	return model.NewIdentity(req.GameName, req.TagLine, req.Region)
}

type submitResponse struct {
	IdentityHash string `json:"identityHash"`
	Cached       bool   `json:"cached"`
	Status       string `json:"status"`
}

type cacheCheckResponse struct {
	IdentityHash string     `json:"identityHash"`
	Cached       bool       `json:"cached"`
	MatchCount   int        `json:"matchCount,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) regions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.Regions)
}

// submit answers from the cache when it can and queues a job otherwise.
func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeIdentity(w, r)
	if !ok {
		return
	}
	hash := id.Hash()

	if _, hit, err := h.d.Results.Get(r.Context(), hash); err != nil {
		log.Warn().Err(err).Str("identity", hash).Msg("result cache read failed")
	} else if hit {
		writeJSON(w, http.StatusOK, submitResponse{IdentityHash: hash, Cached: true, Status: string(model.StateComplete)})
		return
	}

	if _, err := h.d.Queue.Submit(id); err != nil {
		switch {
		case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
			writeErr(w, http.StatusServiceUnavailable, "Too many rewinds in progress. Try again shortly.")
		default:
			writeErr(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{IdentityHash: hash, Status: string(model.StateQueued)})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	doc, ok, err := h.d.Status.Get(r.Context(), hash)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	if !ok {
		if _, queued := h.d.Queue.Pending(hash); queued {
			writeJSON(w, http.StatusOK, model.StatusDoc{IdentityHash: hash, State: model.StateQueued})
			return
		}
		writeErr(w, http.StatusNotFound, "no rewind for this player")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handlers) result(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) narrative(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	slot := chi.URLParam(r, "slot")
	text, known := rec.Narrative[slot]
	if !known {
		writeErr(w, http.StatusNotFound, "unknown narrative slot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"slot": slot, "text": text})
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) (model.ResultRecord, bool) {
	hash := chi.URLParam(r, "hash")
	rec, ok, err := h.d.Results.Get(r.Context(), hash)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "result unavailable")
		return rec, false
	}
	if !ok {
		writeErr(w, http.StatusNotFound, "no finished rewind for this player")
		return rec, false
	}
	return rec, true
}

func (h *handlers) cacheCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeIdentity(w, r)
	if !ok {
		return
	}
	hash := id.Hash()
	rec, hit, err := h.d.Results.Get(r.Context(), hash)
	if err != nil {
		log.Warn().Err(err).Str("identity", hash).Msg("result cache read failed")
	}
	resp := cacheCheckResponse{IdentityHash: hash, Cached: hit}
	if hit {
		resp.MatchCount = rec.MatchCount
		resp.ExpiresAt = &rec.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) cacheInvalidate(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeIdentity(w, r)
	if !ok {
		return
	}
	existed, err := h.d.Invalidator.Invalidate(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("identity", id.Hash()).Msg("invalidate failed")
		writeErr(w, http.StatusInternalServerError, "invalidate failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identityHash": id.Hash(), "invalidated": existed})
}

// ---- Helpers ----

func decodeIdentity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	var req identityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return model.Identity{}, false
	}
	id := req.identity()
	if err := id.Validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return model.Identity{}, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
