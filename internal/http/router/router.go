// Package router wires the controllers into a chi router.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bremersee/authman/internal/http/controllers"
	httperrors "github.com/bremersee/authman/internal/http/errors"
	"github.com/bremersee/authman/internal/http/middlewares"
)

// Deps are the services behind the routes. Nil services leave their routes
// unmounted.
type Deps struct {
	Social           controllers.SocialService
	CallbackBase     string
	AllowedRedirects []string
	Approvals        controllers.ApprovalService
	Clients          controllers.ClientDetailsService
	Checks           map[string]controllers.Check
	Version          string
	Metrics          http.Handler
}

// New builds the handler.
//
//	GET    /healthz
//	GET    /readyz
//	GET    /metrics
//	GET    /login
//	GET    /login/{provider}
//	GET    /login/{provider}/callback
//	POST   /approvals
//	GET    /approvals/{userID}/{clientID}
//	DELETE /approvals/{userID}/{clientID}
//	GET    /clients/{clientID}
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares.WithRequestID, middlewares.WithLogging, middlewares.WithRecover)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	health := controllers.NewHealthController(d.Version, d.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	if d.Social != nil {
		sc := controllers.NewSocialController(d.Social, d.CallbackBase, d.AllowedRedirects...)
		r.Route("/login", func(r chi.Router) {
			r.Get("/", sc.List)
			r.Get("/{provider}", sc.Start)
			r.Get("/{provider}/callback", sc.Callback)
		})
	}

	if d.Approvals != nil {
		ac := controllers.NewApprovalsController(d.Approvals)
		r.Route("/approvals", func(r chi.Router) {
			r.Post("/", ac.Add)
			r.Get("/{userID}/{clientID}", ac.List)
			r.Delete("/{userID}/{clientID}", ac.Revoke)
		})
	}

	if d.Clients != nil {
		cc := controllers.NewClientsController(d.Clients)
		r.Get("/clients/{clientID}", cc.Get)
	}

	return r
}
