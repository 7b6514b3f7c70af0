package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

// ApprovalsHandler serves DELETE /admin/oauth/approvals?username=&client_id=.
// It forgets every scope the user approved for the client, so the next
// authorization prompts again. Issued tokens are untouched.
type ApprovalsHandler struct {
	Approvals service.ApprovalAuthority
}

func (h *ApprovalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	username := strings.TrimSpace(query.Get("username"))
	clientID := strings.TrimSpace(query.Get("client_id"))
	if username == "" || clientID == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and client_id are required").WriteError(w)
		return
	}

	if err := h.Approvals.RevokeApprovals(r.Context(), domain.Username(username), domain.ClientID(clientID)); err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("approvals revoked", "username", username, "client_id", clientID)
	httpx.WriteNoContent(w)
}
