package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"goalcoach/internal/eventbus"
	"goalcoach/internal/ics"
	"goalcoach/internal/notify"
	"goalcoach/internal/reminder"
	logx "goalcoach/pkg/logx"
)

// Deps are the collaborators the API surfaces.
type Deps struct {
	Log      logx.Logger
	Bus      eventbus.Bus
	Reminder *reminder.Service
	Exporter *ics.Exporter
	Notify   *notify.Service    // optional; enables delivery history in /api/state
	Events   *eventbus.Recorder // optional; enables recent events in /api/state
}

type handler struct {
	deps    Deps
	baseURL string
	export  *rate.Limiter
}

// NewHandler builds the API routes. exportRatePerSec bounds /api/ics;
// values below 1 default to 5.
func NewHandler(deps Deps, baseURL string, exportRatePerSec int) http.Handler {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	if exportRatePerSec < 1 {
		exportRatePerSec = 5
	}
	h := &handler{
		deps:    deps,
		baseURL: strings.TrimRight(baseURL, "/"),
		export:  rate.NewLimiter(rate.Limit(exportRatePerSec), exportRatePerSec),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /api/ics", h.handleExport)
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /api/share", h.handleShare)
	mux.HandleFunc("GET /api/apply", h.handleApply)
	mux.HandleFunc("POST /api/reminder", h.handleConfigure)
	mux.HandleFunc("POST /api/reminder/start", h.handleStart)
	mux.HandleFunc("POST /api/reminder/stop", h.handleStop)
	return mux
}

func (h *handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleExport serves the calendar download. Malformed numeric params
// degrade to defaults rather than erroring; there is no failure mode
// short of rate limiting.
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if !h.export.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	q := r.URL.Query()
	title := q.Get("title")
	interval := intParam(q, "interval", 0)
	duration := intParam(q, "duration", 0)

	doc := h.deps.Exporter.Export(title, interval, duration)

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.Body))

	if h.deps.Bus != nil {
		h.deps.Bus.Publish(eventbus.Event{Type: eventbus.TypeExportServed, Data: map[string]any{
			"interval": interval, "duration": duration,
		}})
	}
}

type stateResponse struct {
	Reminder reminder.State       `json:"reminder"`
	History  []notify.HistoryItem `json:"history,omitempty"`
	Events   []eventbus.Event     `json:"events,omitempty"`
}

func (h *handler) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{Reminder: h.deps.Reminder.State()}
	if h.deps.Notify != nil {
		resp.History = h.deps.Notify.History()
	}
	if h.deps.Events != nil {
		resp.Events = h.deps.Events.Recent()
	}
	writeJSON(w, http.StatusOK, resp)
}

type configureRequest struct {
	Goal            string `json:"goal"`
	IntervalMinutes int    `json:"intervalMinutes"`
}

func (h *handler) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	h.deps.Reminder.Configure(r.Context(), req.Goal, req.IntervalMinutes)
	writeJSON(w, http.StatusOK, stateResponse{Reminder: h.deps.Reminder.State()})
}

func (h *handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Reminder.Start(r.Context()); err != nil {
		if errors.Is(err, reminder.ErrEmptyGoal) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Reminder: h.deps.Reminder.State()})
}

func (h *handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.deps.Reminder.Stop(r.Context())
	writeJSON(w, http.StatusOK, stateResponse{Reminder: h.deps.Reminder.State()})
}

// handleShare encodes the current goal and cadence into a URL that
// handleApply can round-trip.
func (h *handler) handleShare(w http.ResponseWriter, r *http.Request) {
	st := h.deps.Reminder.State()

	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}

	v := url.Values{}
	v.Set("goal", st.Goal)
	v.Set("interval", strconv.Itoa(st.IntervalMinutes))
	writeJSON(w, http.StatusOK, map[string]string{
		"url": base + "/api/apply?" + v.Encode(),
	})
}

// handleApply restores settings from a shared link. The interval floor
// here is 1, deliberately looser than the export endpoint's floor of 5.
func (h *handler) handleApply(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	st := h.deps.Reminder.State()
	goal := st.Goal
	if q.Has("goal") {
		goal = q.Get("goal")
	}
	interval := st.IntervalMinutes
	if q.Has("interval") {
		interval = intParam(q, "interval", interval)
		if interval < 1 {
			interval = 1
		}
	}

	h.deps.Reminder.Configure(r.Context(), goal, interval)
	writeJSON(w, http.StatusOK, stateResponse{Reminder: h.deps.Reminder.State()})
}

func intParam(q url.Values, key string, def int) int {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// withAuth guards the API with a bearer token. An empty token disables
// the check (loopback binds only, enforced at serve time).
func withAuth(token string, next http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w)
			return
		}
		if ah := r.Header.Get("Authorization"); ah != "" {
			const p = "Bearer "
			if strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
				next.ServeHTTP(w, r)
				return
			}
		}
		unauthorized(w)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
