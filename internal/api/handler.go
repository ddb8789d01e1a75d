package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/layered-config/internal/configstore"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const redactedValue = "***"

// Store is the read surface of a configuration store.
type Store interface {
	Get(key string) (configstore.ResolvedValue, bool)
	GetSection(prefix string) configstore.Section
	Explain(key string) []configstore.ResolvedValue
	Sources() []configstore.SourceInfo
}

// Reloader re-reads a named source from its medium and publishes it.
type Reloader interface {
	Reload(ctx context.Context, name string) error
}

// Handler exposes a configuration store over HTTP.
type Handler struct {
	store    Store
	reloader Reloader
	redacted map[string]struct{}

	clock func() time.Time

	mu         sync.RWMutex
	reloadedAt map[string]time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithRedactedSources masks values resolved from the named sources.
func WithRedactedSources(names ...string) HandlerOption {
	return func(h *Handler) {
		for _, name := range names {
			h.redacted[name] = struct{}{}
		}
	}
}

// NewHandler constructs a Handler. reloader may be nil, which disables the
// reload endpoint.
func NewHandler(store Store, reloader Reloader, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:    store,
		reloader: reloader,
		redacted: make(map[string]struct{}),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		reloadedAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.sectionResponse("", h.store.GetSection("")))
}

func (h *Handler) handleGetValue(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := configstore.NormalizeKey(key); !ok {
		writeError(w, http.StatusBadRequest, "Invalid key", configstore.ErrInvalidKey.Error())
		return
	}

	rv, ok := h.store.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "Key not found", configstore.ErrMissingKey.Error(),
			"Check /api/explain/"+key+" or the key spelling")
		return
	}
	writeJSON(w, http.StatusOK, h.valueResponse(rv))
}

func (h *Handler) handleGetSection(w http.ResponseWriter, r *http.Request) {
	prefix := r.PathValue("prefix")
	writeJSON(w, http.StatusOK, h.sectionResponse(prefix, h.store.GetSection(prefix)))
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := configstore.NormalizeKey(key); !ok {
		writeError(w, http.StatusBadRequest, "Invalid key", configstore.ErrInvalidKey.Error())
		return
	}

	chain := h.store.Explain(key)
	resp := explainResponse{
		Key:   key,
		Chain: make([]valueResponse, 0, len(chain)),
	}
	for _, rv := range chain {
		resp.Chain = append(resp.Chain, h.valueResponse(rv))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSources(w http.ResponseWriter, r *http.Request) {
	_ = r
	infos := h.store.Sources()
	resp := sourcesResponse{Sources: make([]sourceResponse, 0, len(infos))}
	for _, info := range infos {
		resp.Sources = append(resp.Sources, h.sourceResponse(info))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReloadSource(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeError(w, http.StatusNotImplemented, "Reload unavailable", "no reloader configured")
		return
	}

	name := r.PathValue("name")
	if err := h.reloader.Reload(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, configstore.ErrUnknownSource):
			writeError(w, http.StatusNotFound, "Unknown source", err.Error(), "List sources with GET /api/sources")
		case errors.Is(err, configstore.ErrInvalidKey):
			writeError(w, http.StatusUnprocessableEntity, "Invalid source contents", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Reload failed", err.Error(),
				"The previous entries are still in effect")
		}
		return
	}

	h.markReloaded(name)

	for _, info := range h.store.Sources() {
		if info.Name != name {
			continue
		}
		resp := reloadResponse{
			sourceResponse: h.sourceResponse(info),
			Message:        "Source reloaded successfully",
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeInternalError(w, errors.New("reloaded source disappeared"))
}

func (h *Handler) valueResponse(rv configstore.ResolvedValue) valueResponse {
	resp := valueResponse{
		Key:      rv.Key,
		Value:    rv.Value,
		Source:   rv.Source,
		Priority: rv.Priority,
	}
	if _, ok := h.redacted[rv.Source]; ok {
		resp.Value = redactedValue
		resp.Redacted = true
	}
	return resp
}

func (h *Handler) sectionResponse(prefix string, section configstore.Section) sectionResponse {
	resp := sectionResponse{
		Prefix: strings.TrimRight(prefix, ":."),
		Keys:   make([]string, 0, len(section)),
		Values: make(map[string]valueResponse, len(section)),
	}
	for relative, rv := range section {
		resp.Keys = append(resp.Keys, relative)
		resp.Values[relative] = h.valueResponse(rv)
	}
	sort.Strings(resp.Keys)
	return resp
}

func (h *Handler) sourceResponse(info configstore.SourceInfo) sourceResponse {
	resp := sourceResponse{
		Name:     info.Name,
		Priority: info.Priority,
		Entries:  info.Entries,
		Revision: info.Revision,
	}
	if _, ok := h.redacted[info.Name]; ok {
		resp.Redacted = true
	}
	if at, ok := h.lastReloadedAt(info.Name); ok {
		resp.ReloadedAt = &at
	}
	return resp
}

func (h *Handler) lastReloadedAt(name string) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	at, ok := h.reloadedAt[name]
	return at, ok
}

func (h *Handler) markReloaded(name string) {
	h.mu.Lock()
	h.reloadedAt[name] = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type valueResponse struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Source   string `json:"source"`
	Priority int    `json:"priority"`
	Redacted bool   `json:"redacted,omitempty"`
}

type sectionResponse struct {
	Prefix string                   `json:"prefix"`
	Keys   []string                 `json:"keys"`
	Values map[string]valueResponse `json:"values"`
}

type explainResponse struct {
	Key   string          `json:"key"`
	Chain []valueResponse `json:"chain"`
}

type sourceResponse struct {
	Name       string     `json:"name"`
	Priority   int        `json:"priority"`
	Entries    int        `json:"entries"`
	Revision   uint64     `json:"revision"`
	Redacted   bool       `json:"redacted,omitempty"`
	ReloadedAt *time.Time `json:"reloadedAt,omitempty"`
}

type sourcesResponse struct {
	Sources []sourceResponse `json:"sources"`
}

type reloadResponse struct {
	sourceResponse
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
