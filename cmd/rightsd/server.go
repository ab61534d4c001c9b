package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goRights "github.com/MrEthical07/goRights"
	"github.com/MrEthical07/goRights/jwt"
	"github.com/MrEthical07/goRights/metrics/export/prometheus"
	"github.com/MrEthical07/goRights/middleware"
	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/unrolled/secure"
)

// RouterParams carries the router dependencies.
type RouterParams struct {
	Config *Config
	Logger *slog.Logger
	Engine *goRights.Engine
	Tokens *jwt.Manager
	// Pinger checks the rights backend for /healthz; nil skips the check.
	Pinger func(context.Context) error
}

type handler struct {
	logger   *slog.Logger
	engine   *goRights.Engine
	pinger   func(context.Context) error
	validate *validator.Validate
}

// NewRouter assembles the daemon routes.
func NewRouter(p RouterParams) http.Handler {
	h := &handler{
		logger:   p.Logger,
		engine:   p.Engine,
		pinger:   p.Pinger,
		validate: validator.New(),
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           p.Config.Production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !p.Config.Production,
	})

	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		requestID,
		chimw.Recoverer,
		chimw.Timeout(p.Config.RequestTimeout),
		secureMiddleware.Handler,
	)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", prometheus.NewExporter(p.Engine).Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(
			httprate.Limit(p.Config.ReadRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
			middleware.Authenticate(p.Tokens, p.Logger),
		)

		r.Get("/check", h.check)
		r.With(middleware.Require(p.Engine, permission.Show, resource.User)).
			Get("/rights/{tier}", h.getRights)
		r.With(
			httprate.Limit(p.Config.WriteRateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "too many rights updates")
				}),
			),
			middleware.Require(p.Engine, permission.Edit, resource.User),
		).Put("/rights/{tier}/{resource}", h.putResourceRights)
	})

	return r
}

const requestIDHeader = "X-Request-ID"

// requestID propagates the caller's request id or assigns a fresh one, and
// exposes it through chi's request id context key.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

/*
====================================
HANDLERS
====================================
*/

type healthResponse struct {
	Status        string    `json:"status"`
	RightsVersion uint64    `json:"rights_version"`
	LoadedAt      time.Time `json:"loaded_at"`
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	version, loadedAt := h.engine.RightsVersion()
	resp := healthResponse{Status: "ok", RightsVersion: version, LoadedAt: loadedAt}
	if h.pinger != nil {
		if err := h.pinger(r.Context()); err != nil {
			h.logger.Warn("health check failed", slog.Any("error", err))
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type checkRequest struct {
	Action   string `validate:"required,max=64"`
	Resource string `validate:"required,max=256"`
}

type checkResponse struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Decision string `json:"decision"`
}

// check reports the decision for the request principal. Anonymous callers get
// "deny" for supported queries.
func (h *handler) check(w http.ResponseWriter, r *http.Request) {
	req := checkRequest{
		Action:   r.URL.Query().Get("action"),
		Resource: r.URL.Query().Get("resource"),
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	var principal any
	if p, ok := goRights.PrincipalFromContext(r.Context()); ok {
		principal = p
	}
	d := h.engine.Decide(principal, req.Action, req.Resource)
	writeJSON(w, http.StatusOK, checkResponse{
		Action:   req.Action,
		Resource: resource.NameFor(req.Resource),
		Decision: d.String(),
	})
}

type rightsResponse struct {
	Tier        string              `json:"tier"`
	Rights      string              `json:"rights"`
	Permissions map[string][]string `json:"permissions"`
}

func (h *handler) rightsView(tier role.Tier, buf rights.Buffer) rightsResponse {
	perms := h.engine.PermissionCatalog()
	resp := rightsResponse{
		Tier:        tier.String(),
		Rights:      buf.Encode(),
		Permissions: make(map[string][]string, h.engine.ResourceCatalog().Count()),
	}
	for _, res := range h.engine.ResourceCatalog().All() {
		names := perms.Names(buf.Get(res.Offset))
		if names == nil {
			names = []string{}
		}
		resp.Permissions[res.Name] = names
	}
	return resp
}

func (h *handler) getRights(w http.ResponseWriter, r *http.Request) {
	tier, err := role.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown tier")
		return
	}
	writeJSON(w, http.StatusOK, h.rightsView(tier, h.engine.DefaultRights(tier)))
}

type updateRightsRequest struct {
	Permissions []string `json:"permissions" validate:"max=8,dive,required,max=64"`
}

func (h *handler) putResourceRights(w http.ResponseWriter, r *http.Request) {
	tier, err := role.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown tier")
		return
	}

	var req updateRightsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	buf, err := h.engine.UpdateResourceRights(r.Context(), tier, chi.URLParam(r, "resource"), req.Permissions)
	switch {
	case err == nil:
	case errors.Is(err, goRights.ErrRightsNotApplied):
		h.logger.Warn("rights stored, reload pending",
			slog.String("tier", tier.String()),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusAccepted, h.rightsView(tier, buf))
		return
	case errors.Is(err, goRights.ErrTierNotStored):
		writeError(w, http.StatusConflict, "super-admin rights are not configurable")
		return
	case errors.Is(err, goRights.ErrInvalidRights):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, goRights.ErrStoreUnavailable):
		h.logger.Error("rights update failed", slog.String("tier", tier.String()), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "rights store unavailable")
		return
	default:
		h.logger.Error("rights update failed", slog.String("tier", tier.String()), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("rights updated",
		slog.String("tier", tier.String()),
		slog.String("resource", chi.URLParam(r, "resource")),
		slog.String("request_id", chimw.GetReqID(r.Context())),
	)
	writeJSON(w, http.StatusOK, h.rightsView(tier, buf))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Field() + " failed " + fe.Tag()
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
