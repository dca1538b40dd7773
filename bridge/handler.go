package bridge

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gotg/authflow"
	"github.com/gotg/authflow/metrics/export/prometheus"
	"github.com/gotg/authflow/route"
	"github.com/gotg/authflow/validation"
)

const maxBodyBytes = 1 << 16

// Handler serves the bridge API for one Controller.
type Handler struct {
	controller *authflow.Controller
	navigator  *route.Navigator
	signingIn  atomic.Bool
	signingUp  atomic.Bool
	metrics    *prometheus.PrometheusExporter
	logger     *slog.Logger
	router     chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithInitialScreen sets where the Navigator starts. Default landing.
func WithInitialScreen(s route.Screen) Option {
	return func(h *Handler) {
		h.navigator.Navigate(s)
	}
}

// New builds the router for c. The Controller should already be started.
func New(c *authflow.Controller, opts ...Option) *Handler {
	h := &Handler{
		controller: c,
		navigator:  c.NewNavigator(route.ScreenLanding),
		metrics:    prometheus.NewPrometheusExporter(c),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestContext)

	r.Get("/healthz", h.healthz)
	r.Get("/state", h.state)
	r.Get("/screens/{screen}", h.screen)
	r.Post("/signin", h.postSignIn)
	r.Post("/signup", h.postSignUp)
	r.Post("/verify/resend", h.postResend)
	r.Post("/verify/back", h.postBack)
	r.Post("/signout", h.postSignOut)
	r.Post("/social/{provider}", h.postSocial)
	r.Post("/password/forgot", h.postForgot)
	r.With(RequireSession(h.controller)).Get("/session", h.session)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Close detaches the Navigator from the Controller.
func (h *Handler) Close() {
	h.navigator.Close()
}

func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = authflow.WithRequestID(ctx, id)
		}
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		h.logger.Debug("bridge request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

/*
====================================
RESPONSES
====================================
*/

type viewResponse struct {
	Screen       string `json:"screen"`
	Requested    string `json:"requested"`
	Decision     string `json:"decision"`
	Target       string `json:"target,omitempty"`
	State        string `json:"state"`
	PendingEmail string `json:"pendingEmail,omitempty"`
	Redirected   bool   `json:"redirected"`
}

type stateResponse struct {
	State            string                 `json:"state"`
	Phase            string                 `json:"phase"`
	PendingEmail     string                 `json:"pendingEmail,omitempty"`
	IsResending      bool                   `json:"isResending"`
	View             viewResponse           `json:"view"`
	LastNotification *authflow.Notification `json:"lastNotification,omitempty"`
}

type sessionResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func toView(v route.View) viewResponse {
	return viewResponse{
		Screen:       string(v.Screen),
		Requested:    string(v.Requested),
		Decision:     v.Decision.Kind.String(),
		Target:       string(v.Decision.Target),
		State:        v.State.String(),
		PendingEmail: v.PendingEmail,
		Redirected:   v.Redirected,
	}
}

func (h *Handler) snapshot() stateResponse {
	snap := h.controller.Snapshot()
	return stateResponse{
		State:            snap.State.String(),
		Phase:            snap.Phase.String(),
		PendingEmail:     snap.PendingEmail,
		IsResending:      snap.IsResending,
		View:             toView(h.navigator.Current()),
		LastNotification: snap.LastNotification,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string, fields map[validation.Field]string) {
	resp := errorResponse{Error: msg, Kind: kind}
	if len(fields) > 0 {
		resp.Fields = make(map[string]string, len(fields))
		for f, m := range fields {
			resp.Fields[string(f)] = m
		}
	}
	writeJSON(w, status, resp)
}

// writeFailure maps a Controller error onto a status code.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var aerr *authflow.AuthError
	switch {
	case errors.Is(err, authflow.ErrNotStarted), errors.Is(err, authflow.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "", nil)
		return
	case errors.Is(err, authflow.ErrSubmitInProgress), errors.Is(err, authflow.ErrResendInProgress):
		writeError(w, http.StatusConflict, err.Error(), authflow.KindValidation.String(), nil)
		return
	case !errors.As(err, &aerr):
		h.logger.Error("bridge request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error", "", nil)
		return
	}

	status := http.StatusInternalServerError
	switch aerr.Kind {
	case authflow.KindValidation:
		status = http.StatusUnprocessableEntity
	case authflow.KindGateway:
		status = http.StatusBadRequest
	case authflow.KindNetwork:
		status = http.StatusBadGateway
	case authflow.KindStorage:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, aerr.Message, aerr.Kind.String(), aerr.Fields)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "", nil)
		return false
	}
	return true
}

/*
====================================
HANDLERS
====================================
*/

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) screen(w http.ResponseWriter, r *http.Request) {
	s, err := route.ParseScreen(chi.URLParam(r, "screen"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "", nil)
		return
	}
	writeJSON(w, http.StatusOK, toView(h.navigator.Navigate(s)))
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) postSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.signingIn.CompareAndSwap(false, true) {
		h.writeFailure(w, r, authflow.ErrSubmitInProgress)
		return
	}
	defer h.signingIn.Store(false)

	f := h.controller.NewSignInForm()
	f.Set(validation.FieldEmail, req.Email)
	f.Set(validation.FieldPassword, req.Password)

	if err := h.controller.SignIn(r.Context(), f); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

type signUpRequest struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	AgreeToTerms bool   `json:"agreeToTerms"`
}

func (h *Handler) postSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.signingUp.CompareAndSwap(false, true) {
		h.writeFailure(w, r, authflow.ErrSubmitInProgress)
		return
	}
	defer h.signingUp.Store(false)

	f := h.controller.NewSignUpForm()
	f.Set(validation.FieldFullName, req.FullName)
	f.Set(validation.FieldEmail, req.Email)
	f.Set(validation.FieldPassword, req.Password)
	f.Set(validation.FieldAgreeToTerms, req.AgreeToTerms)

	if err := h.controller.SignUp(r.Context(), f); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) postResend(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.ResendVerification(r.Context()); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) postBack(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.BackToSignIn(r.Context()); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.navigator.Navigate(route.ScreenSignIn)
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) postSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.SignOut(r.Context()); err != nil {
		if errors.Is(err, authflow.ErrNotStarted) || errors.Is(err, authflow.ErrClosed) {
			h.writeFailure(w, r, err)
			return
		}
		// Local state is already cleared.
		h.logger.Warn("sign out gateway call failed", slog.Any("error", err))
	}
	h.navigator.Navigate(route.ScreenLanding)
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) postSocial(w http.ResponseWriter, r *http.Request) {
	h.controller.SocialSignIn(chi.URLParam(r, "provider"))
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) postForgot(w http.ResponseWriter, _ *http.Request) {
	h.controller.ForgotPassword()
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	s, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "", nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: s.UserID, Email: s.Email, ExpiresAt: s.ExpiresAt})
}
