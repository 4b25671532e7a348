package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/synergyayush/lookindharamshala/internal/livecollection"
)

// CollectionStatus exposes the state of a live collection
type CollectionStatus interface {
	Name() string
	State() livecollection.State
	LastError() error
}

// Pinger checks a backing connection
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process and collection health
type HealthHandler struct {
	db          Pinger
	collections []CollectionStatus
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db Pinger, collections ...CollectionStatus) *HealthHandler {
	return &HealthHandler{db: db, collections: collections}
}

type collectionHealth struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// Health handles GET /health. A failed refetch only degrades the service:
// views keep serving their last good list.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	collections := make(map[string]collectionHealth, len(h.collections))
	for _, c := range h.collections {
		ch := collectionHealth{State: c.State().String()}
		if err := c.LastError(); err != nil {
			ch.Error = err.Error()
			if status == "ok" {
				status = "degraded"
			}
		}
		collections[c.Name()] = ch
	}

	respondWithJSON(w, code, map[string]interface{}{
		"status":      status,
		"collections": collections,
	})
}
