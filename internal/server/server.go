// Package server is the HTTP web shell: it renders the guarded views as JSON
// and exposes the store actions as endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"travelplanner/internal/apiclient"
	"travelplanner/internal/ratelimit"
	"travelplanner/internal/router"
	"travelplanner/internal/store"
	"travelplanner/internal/util"
	"travelplanner/pkg/domain"
)

const maxBodyBytes = 1 << 20

// HealthChecker reports the remote API status.
type HealthChecker interface {
	Health(ctx context.Context) (domain.Health, error)
}

// Config wires the web shell dependencies.
type Config struct {
	Store  *store.Store
	Health HealthChecker
	// AuthLimiter throttles login and signup; nil disables throttling.
	AuthLimiter ratelimit.Limiter
	// RateWindow is the limiter window, reported in Retry-After.
	RateWindow time.Duration
	// TrustedProxies may set X-Forwarded-For; nil trusts no one.
	TrustedProxies *util.TrustedProxies
	Logger         *slog.Logger
}

// Server serves the views and actions of one session.
type Server struct {
	store   *store.Store
	nav     *router.Router
	health  HealthChecker
	limiter ratelimit.Limiter
	window  time.Duration
	trusted *util.TrustedProxies
	logger  *slog.Logger
	mux     *mux.Router
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server requires a store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   cfg.Store,
		nav:     router.New(cfg.Store, logger),
		health:  cfg.Health,
		limiter: cfg.AuthLimiter,
		window:  cfg.RateWindow,
		trusted: cfg.TrustedProxies,
		logger:  logger,
		mux:     mux.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithRequestID(util.WithRequestLog("planner", s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	actions := s.mux.PathPrefix("/actions").Subrouter()
	actions.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	actions.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	actions.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	actions.HandleFunc("/plans", s.handleCreatePlan).Methods(http.MethodPost)
	actions.HandleFunc("/plans/public", s.handlePublicPlans).Methods(http.MethodGet)
	actions.HandleFunc("/plans/{id}", s.handleDeletePlan).Methods(http.MethodDelete)
	actions.HandleFunc("/plans/{id}/like", s.handleLikePlan).Methods(http.MethodPost)
	actions.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	actions.HandleFunc("/favorites/{id}", s.handleAddFavorite).Methods(http.MethodPost)
	actions.HandleFunc("/favorites/{id}", s.handleRemoveFavorite).Methods(http.MethodDelete)

	// Views are registered in table order so /plans/create wins over /plans/{id}.
	for _, r := range router.Routes() {
		s.mux.HandleFunc(muxPath(r.Path), s.handleView).Methods(http.MethodGet, http.MethodHead)
	}
	s.mux.NotFoundHandler = http.HandlerFunc(s.handleView)
	s.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w)
	})
}

// muxPath turns "/plans/:id" into "/plans/{id}".
func muxPath(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if strings.HasPrefix(seg, ":") {
			segs[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segs, "/")
}

type viewResponse struct {
	View   router.View       `json:"view"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params"`
	State  store.State       `json:"state"`
	Plan   domain.Plan       `json:"plan,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type redirectResponse struct {
	Redirect  string      `json:"redirect"`
	View      router.View `json:"view"`
	Requested string      `json:"requested"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	nav := s.nav.Navigate(r.Context(), r.URL.Path)
	if nav.Redirected() {
		w.Header().Set("Location", nav.Final.Path)
		writeJSON(w, http.StatusFound, redirectResponse{
			Redirect:  nav.Final.Path,
			View:      nav.Final.Route.Name,
			Requested: nav.Requested.Path,
		})
		return
	}
	resp := viewResponse{
		View:   nav.Final.Route.Name,
		Path:   nav.Final.Path,
		Params: nav.Final.Params,
	}
	status := http.StatusOK
	switch nav.Final.Route.Name {
	case router.ViewNotFound:
		status = http.StatusNotFound
	case router.ViewPlanDetails:
		plan, err := s.store.FetchPlan(r.Context(), nav.Final.Params["id"])
		if err != nil {
			status = actionStatus(err)
			resp.Error = err.Error()
		}
		resp.Plan = plan
	}
	resp.State = s.store.Snapshot()
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.health != nil {
		h, err := s.health.Health(r.Context())
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("api health check failed", "err", err)
			resp["api"] = map[string]string{"status": "unreachable"}
		} else {
			resp["api"] = h
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, "too many login attempts") {
		s.audit(r, "planner.login", "rate_limited")
		return
	}
	var creds domain.Credentials
	if !decodeBody(w, r, &creds) {
		s.audit(r, "planner.login", "fail", "reason", "invalid_json")
		return
	}
	if _, err := s.store.Login(r.Context(), creds); err != nil {
		s.audit(r, "planner.login", "fail", "reason", err.Error())
		writeActionError(w, err)
		return
	}
	s.audit(r, "planner.login", "success", "user_id", s.store.CurrentUser().ID())
	writeJSON(w, http.StatusOK, map[string]any{"state": s.store.Snapshot()})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, "too many signup attempts") {
		s.audit(r, "planner.signup", "rate_limited")
		return
	}
	var data domain.SignupData
	if !decodeBody(w, r, &data) {
		s.audit(r, "planner.signup", "fail", "reason", "invalid_json")
		return
	}
	if _, err := s.store.Signup(r.Context(), data); err != nil {
		s.audit(r, "planner.signup", "fail", "reason", err.Error())
		writeActionError(w, err)
		return
	}
	s.audit(r, "planner.signup", "success", "user_id", s.store.CurrentUser().ID())
	writeJSON(w, http.StatusCreated, map[string]any{"state": s.store.Snapshot()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.Logout()
	s.audit(r, "planner.logout", "success")
	writeJSON(w, http.StatusOK, map[string]any{"state": s.store.Snapshot()})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var input domain.PlanInput
	if !decodeBody(w, r, &input) {
		return
	}
	plan, err := s.store.CreatePlan(r.Context(), input)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"plan": plan})
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePlan(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": s.store.UserPlans()})
}

func (s *Server) handlePublicPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.FetchPublicPlans(r.Context())
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleLikePlan(w http.ResponseWriter, r *http.Request) {
	likes, err := s.store.LikePlan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"likes": likes})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Sync(r.Context()); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.store.Snapshot()})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	fav, err := s.store.AddToFavorites(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"favorite": fav})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveFromFavorites(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": s.store.UserFavorites()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// actionStatus mirrors the API status when there was one, 502 otherwise.
func actionStatus(err error) int {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

func writeActionError(w http.ResponseWriter, err error) {
	writeError(w, actionStatus(err), err.Error())
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, msg string) bool {
	if s.limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if s.limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", retryAfter(s.window))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

// retryAfter renders window in whole seconds, rounded up. Zero means the
// window is unknown and falls back to a minute.
func retryAfter(window time.Duration) string {
	if window <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(window.Seconds())))
}
