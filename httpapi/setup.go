package httpapi

import (
	"net/http"

	"github.com/clinsys/authgate/auth"
	"github.com/clinsys/authgate/bootstrap"
	"github.com/clinsys/authgate/observe"
)

// AdminSecretHeader is the alternative carrier for the setup secret.
const AdminSecretHeader = "X-Admin-Secret"

// SetupHandlers serves the admin bootstrap endpoints.
type SetupHandlers struct {
	flow    *bootstrap.Flow
	metrics observe.Metrics
}

// NewSetupHandlers creates the bootstrap handler set.
func NewSetupHandlers(flow *bootstrap.Flow, metrics observe.Metrics) *SetupHandlers {
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	return &SetupHandlers{flow: flow, metrics: metrics}
}

type generateTokenRequest struct {
	SecretKey     string `json:"secret_key"`
	AllowMultiple bool   `json:"allow_multiple"`
}

// GenerateToken issues a one-time admin registration token. The setup
// secret may arrive in the body or the X-Admin-Secret header.
func (h *SetupHandlers) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req generateTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	secret := req.SecretKey
	if secret == "" {
		secret = r.Header.Get(AdminSecretHeader)
	}

	generated, err := h.flow.GenerateToken(r.Context(), secret, req.AllowMultiple)
	if err != nil {
		writeError(w, err)
		return
	}

	h.metrics.RecordTokenEvent(r.Context(), "issued")
	writeSuccess(w, "Admin registration token generated successfully", generated)
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken classifies a token without consuming it.
func (h *SetupHandlers) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	validity, err := h.flow.ValidateToken(r.Context(), req.Token)
	if err != nil {
		h.recordRejection(r, err)
		writeError(w, err)
		return
	}

	writeSuccess(w, "Token is valid", validity)
}

// Register consumes a token and provisions the admin account.
func (h *SetupHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req bootstrap.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.flow.RegisterAdmin(r.Context(), req)
	if err != nil {
		h.recordRejection(r, err)
		writeError(w, err)
		return
	}

	h.metrics.RecordTokenEvent(r.Context(), "consumed")
	writeSuccess(w, "Admin user created successfully", account)
}

// Status reports whether admin setup is complete.
func (h *SetupHandlers) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.flow.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Admin setup status retrieved", status)
}

type resetRequest struct {
	SecretKey string `json:"secret_key"`
}

// ResetDev clears bootstrap tokens. Development mode only.
func (h *SetupHandlers) ResetDev(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	secret := req.SecretKey
	if secret == "" {
		secret = r.Header.Get(AdminSecretHeader)
	}

	if err := h.flow.ResetDev(r.Context(), secret); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, "Admin setup reset successfully", map[string]any{
		"reset":   true,
		"message": "Development admin setup has been reset",
	})
}

// recordRejection counts token-state failures; auth and provider failures
// are not token lifecycle events.
func (h *SetupHandlers) recordRejection(r *http.Request, err error) {
	switch auth.AsError(err).Kind {
	case auth.KindNotFound, auth.KindAlreadyUsed, auth.KindExpired:
		h.metrics.RecordTokenEvent(r.Context(), "rejected")
	}
}
