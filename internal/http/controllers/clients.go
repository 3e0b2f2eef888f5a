package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bremersee/authman/internal/clientdetails"
)

// ClientDetailsService is implemented by *clientdetails.Provider.
type ClientDetailsService interface {
	LoadClientDetails(ctx context.Context, clientID string) (*clientdetails.ClientDetails, error)
}

type ClientsController struct {
	svc ClientDetailsService
}

func NewClientsController(svc ClientDetailsService) *ClientsController {
	return &ClientsController{svc: svc}
}

// Get handles GET /clients/{clientID}. The secret is never rendered.
func (c *ClientsController) Get(w http.ResponseWriter, r *http.Request) {
	d, err := c.svc.LoadClientDetails(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
