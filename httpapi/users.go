package httpapi

import (
	"net/http"

	"github.com/clinsys/authgate/auth"
	"github.com/clinsys/authgate/directory"
	"github.com/clinsys/authgate/observe"
)

// UserHandlers serves the authenticated self-service endpoints.
type UserHandlers struct {
	dir    directory.Provider
	logger observe.Logger
}

// NewUserHandlers creates the user handler set.
func NewUserHandlers(dir directory.Provider, logger observe.Logger) *UserHandlers {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &UserHandlers{dir: dir, logger: logger}
}

// Profile returns the calling user's verified claims.
func (h *UserHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, auth.Unauthorized("no authenticated identity"))
		return
	}

	writeSuccess(w, "Profile retrieved successfully", map[string]any{
		"uid":            claims.UID,
		"email":          claims.Email,
		"email_verified": claims.EmailVerified,
		"name":           claims.Name,
		"picture":        claims.Picture,
		"auth_time":      claims.AuthTime,
	})
}

type completeRegistrationRequest struct {
	Role     string         `json:"role"`
	UserData map[string]any `json:"user_data"`
}

// CompleteRegistration assigns the calling user their self-selected role.
// Additional role-specific profile data is accepted but not yet persisted.
func (h *UserHandlers) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, auth.Unauthorized("no authenticated identity"))
		return
	}

	var req completeRegistrationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Role == "" {
		writeError(w, auth.ValidationError("role is required"))
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.dir.SetRole(r.Context(), claims.UID, role); err != nil {
		writeDirectoryError(w, err, "failed to set user role")
		return
	}

	h.logger.Info(r.Context(), "user completed registration",
		observe.Field{Key: "uid", Value: claims.UID},
		observe.Field{Key: "role", Value: string(role)},
		observe.Field{Key: "user_data_fields", Value: len(req.UserData)})

	writeSuccess(w, "Registration completed successfully", map[string]any{
		"uid":  claims.UID,
		"role": string(role),
	})
}
