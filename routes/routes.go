package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/rbac-control-plane/app"
	"github.com/upb/rbac-control-plane/handlers"
	"github.com/upb/rbac-control-plane/middleware"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/utils"
)

type mw = func(http.Handler) http.Handler

func passthrough(next http.Handler) http.Handler { return next }

// guard holds the authorization middleware of the admin API. With auth
// disabled every member is a passthrough.
type guard struct {
	authenticate  mw
	rateLimit     mw
	platformAdmin mw
	read          mw
	write         mw
}

func newGuard(deps *app.Dependencies) guard {
	g := guard{
		authenticate:  passthrough,
		rateLimit:     passthrough,
		platformAdmin: passthrough,
		read:          passthrough,
		write:         passthrough,
	}
	if deps.RateLimiter != nil {
		g.rateLimit = deps.RateLimiter.Middleware
	}
	if deps.AuthMiddleware != nil && deps.PermissionMiddleware != nil {
		auth := deps.Config.Auth
		g.authenticate = deps.AuthMiddleware.RequireAuth
		g.platformAdmin = deps.AuthMiddleware.RequireRole(middleware.PlatformAdminRole)
		g.read = deps.PermissionMiddleware.RequirePermission(auth.AdminResource, auth.AdminReadAction)
		g.write = deps.PermissionMiddleware.RequirePermission(auth.AdminResource, auth.AdminAction)
	}
	return g
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}
	if cfg.Observability.MetricsEnabled {
		r.Use(deps.Metrics.Instrument)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Repos.Health, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	g := newGuard(deps)
	orgs := handlers.NewOrganizationHandler(deps.Directory, deps.Logger)
	users := handlers.NewUserHandler(deps.Directory, deps.Logger)
	roles := handlers.NewRoleHandler(deps.Directory, deps.Logger)
	resources := handlers.NewResourceHandler(deps.Directory, deps.Logger)
	props := handlers.NewPropertyHandler(deps.Directory, deps.Logger)
	perms := handlers.NewPermissionHandler(deps.Permissions, deps.Logger)

	r.Route("/api/v1/organizations", func(r chi.Router) {
		r.Use(g.authenticate)
		r.Use(g.rateLimit)

		r.With(g.platformAdmin).Get("/", orgs.HandleList)
		r.With(g.platformAdmin).Post("/", orgs.HandleCreate)

		r.Route("/{"+middleware.OrgIDParam+"}", func(r chi.Router) {
			r.With(g.read).Get("/", orgs.HandleGet)
			r.With(g.write).Put("/", orgs.HandleUpdate)
			r.With(g.platformAdmin).Delete("/", orgs.HandleDelete)
			propertyRoutes(r, "/properties", models.OwnerOrganization, props, g)

			r.Route("/users", func(r chi.Router) {
				r.With(g.read).Get("/", users.HandleList)
				r.With(g.write).Post("/", users.HandleCreate)

				r.Route("/{userID}", func(r chi.Router) {
					r.With(g.read).Get("/", users.HandleGet)
					r.With(g.write).Put("/", users.HandleUpdate)
					r.With(g.write).Delete("/", users.HandleDelete)
					propertyRoutes(r, "/properties", models.OwnerUser, props, g)

					r.With(g.read).Get("/permissions", perms.HandleListUser)
					r.With(g.write).Post("/permissions", perms.HandleGrantUser)
					r.With(g.write).Delete("/permissions", perms.HandleRevokeUser)

					r.With(g.read).Get("/roles", perms.HandleUserRoles)
					r.With(g.write).Put("/roles/{roleID}", perms.HandleAssignRole)
					r.With(g.write).Delete("/roles/{roleID}", perms.HandleUnassignRole)

					r.With(g.read).Get("/effective-permissions", perms.HandleEffectivePermissions)
					r.With(g.read).Get("/has-permission", perms.HandleHasPermission)
				})
			})

			r.Route("/roles", func(r chi.Router) {
				r.With(g.read).Get("/", roles.HandleList)
				r.With(g.write).Post("/", roles.HandleCreate)

				r.Route("/{roleID}", func(r chi.Router) {
					r.With(g.read).Get("/", roles.HandleGet)
					r.With(g.write).Put("/", roles.HandleUpdate)
					r.With(g.write).Delete("/", roles.HandleDelete)
					propertyRoutes(r, "/properties", models.OwnerRole, props, g)

					r.With(g.read).Get("/permissions", perms.HandleListRole)
					r.With(g.write).Post("/permissions", perms.HandleGrantRole)
					r.With(g.write).Delete("/permissions", perms.HandleRevokeRole)
					r.With(g.read).Get("/users", perms.HandleRoleUsers)
				})
			})

			r.Route("/resources", func(r chi.Router) {
				r.With(g.read).Get("/", resources.HandleList)
				r.With(g.write).Post("/", resources.HandleCreate)
				r.With(g.write).Patch("/", resources.HandleUpdate)
				r.With(g.write).Delete("/", resources.HandleDelete)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

func propertyRoutes(r chi.Router, path string, owner models.PropertyOwner, h *handlers.PropertyHandler, g guard) {
	r.With(g.read).Get(path, h.List(owner))
	r.With(g.read).Get(path+"/{name}", h.Get(owner))
	r.With(g.write).Put(path+"/{name}", h.Set(owner))
	r.With(g.write).Delete(path+"/{name}", h.Delete(owner))
}
