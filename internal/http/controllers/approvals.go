package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bremersee/authman/internal/approval"
	httperrors "github.com/bremersee/authman/internal/http/errors"
)

// ApprovalService is implemented by *approval.Store.
type ApprovalService interface {
	AddApprovals(ctx context.Context, approvals []approval.Approval) error
	RevokeApprovals(ctx context.Context, approvals []approval.Approval) (bool, error)
	GetApprovals(ctx context.Context, userID, clientID string) ([]approval.Approval, error)
}

type ApprovalsController struct {
	svc ApprovalService
}

func NewApprovalsController(svc ApprovalService) *ApprovalsController {
	return &ApprovalsController{svc: svc}
}

// List handles GET /approvals/{userID}/{clientID}.
func (c *ApprovalsController) List(w http.ResponseWriter, r *http.Request) {
	out, err := c.svc.GetApprovals(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []approval.Approval{}
	}
	writeJSON(w, http.StatusOK, out)
}

// Add handles POST /approvals with a JSON array body.
func (c *ApprovalsController) Add(w http.ResponseWriter, r *http.Request) {
	var in []approval.Approval
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, r, httperrors.ErrInvalidJSON.WithCause(err))
		return
	}
	for _, a := range in {
		if a.UserID == "" || a.ClientID == "" || a.Scope == "" {
			writeError(w, r, httperrors.ErrBadRequest.WithDetail("userId, clientId and scope are required"))
			return
		}
	}
	if err := c.svc.AddApprovals(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type revokeResponse struct {
	Revoked bool `json:"revoked"`
}

// Revoke handles DELETE /approvals/{userID}/{clientID}[?scope=a&scope=b].
// Without scope every approval of the pair is revoked.
func (c *ApprovalsController) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, clientID := chi.URLParam(r, "userID"), chi.URLParam(r, "clientID")

	var targets []approval.Approval
	if scopes := r.URL.Query()["scope"]; len(scopes) > 0 {
		for _, s := range scopes {
			targets = append(targets, approval.Approval{UserID: userID, ClientID: clientID, Scope: s})
		}
	} else {
		all, err := c.svc.GetApprovals(r.Context(), userID, clientID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		targets = all
	}

	revoked, err := c.svc.RevokeApprovals(r.Context(), targets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revokeResponse{Revoked: revoked})
}
