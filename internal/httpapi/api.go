package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"kinoteka.org/internal/auth"
	"kinoteka.org/internal/obs"
)

// Pinger is implemented by the token registry.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the backing stores before the service accepts traffic.
type ReadyProbe struct {
	DB       *sql.DB
	Registry Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Registry != nil {
		if err := rp.Registry.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	sessions   *auth.Sessions
	users      auth.UserStore
	roles      auth.RoleStore
	history    auth.HistoryStore
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

type Config struct {
	Sessions   *auth.Sessions
	Users      auth.UserStore
	Roles      auth.RoleStore
	History    auth.HistoryStore
	ReadyProbe ReadyProbe
	Version    string
	RateBurst  int
	RatePerSec int
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		sessions:   cfg.Sessions,
		users:      cfg.Users,
		roles:      cfg.Roles,
		history:    cfg.History,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		rateBurst:  cfg.RateBurst,
		ratePerSec: cfg.RatePerSec,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	codec := a.sessions.Codec()
	registry := a.sessions.Registry()

	accessGuard := NewGuard(codec, registry, a.users, auth.KindAccess)
	refreshGuard := NewGuard(codec, registry, a.users, auth.KindRefresh)
	superOrReadGuard := NewGuard(codec, registry, a.users, auth.KindAccess,
		WithAllowedRoles(auth.Superuser), WithBypassMethods(http.MethodGet))

	// session lifecycle
	a.mux.HandleFunc("/auth/signup/", a.Signup)
	a.mux.HandleFunc("/auth/login/", a.Login)
	a.mux.Handle("/auth/refresh-token/", refreshGuard.Wrap(a.RefreshToken))
	a.mux.Handle("/auth/logout/", accessGuard.Wrap(a.Logout))
	a.mux.Handle("/auth/login-history/", accessGuard.Wrap(a.LoginHistory))
	a.mux.HandleFunc("/auth/tokens/is-in-black-list/", a.IsInBlackList)
	a.mux.Handle("/auth/users/change-password/", accessGuard.Wrap(a.ChangePassword))

	// roles
	a.mux.Handle("/auth/roles/", superOrReadGuard.Wrap(a.RolesRoute))

	// users
	a.mux.Handle("/auth/users/", superOrReadGuard.Wrap(a.UsersRoute))

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the mux wrapped with the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kinoteka-auth",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
