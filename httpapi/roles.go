package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinsys/authgate/auth"
	"github.com/clinsys/authgate/directory"
)

// RoleHandlers serves the role management endpoints. Write operations are
// mounted behind the admin-only gate by the router.
type RoleHandlers struct {
	dir directory.Provider
}

// NewRoleHandlers creates the role handler set.
func NewRoleHandlers(dir directory.Provider) *RoleHandlers {
	return &RoleHandlers{dir: dir}
}

type setRoleRequest struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

// Set assigns a role to a user.
func (h *RoleHandlers) Set(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UID == "" || req.Role == "" {
		writeError(w, auth.ValidationError("uid and role are required"))
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.dir.SetRole(r.Context(), req.UID, role); err != nil {
		writeDirectoryError(w, err, "failed to set user role")
		return
	}

	writeSuccess(w, fmt.Sprintf("Role %s set successfully for user", role),
		map[string]any{"uid": req.UID, "role": string(role)})
}

// Get returns a user's role.
func (h *RoleHandlers) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	user, err := h.dir.GetUser(r.Context(), uid)
	if err != nil {
		writeDirectoryError(w, err, "failed to get user role")
		return
	}
	if user.Role == "" {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "user role not found"})
		return
	}

	writeSuccess(w, "User role retrieved successfully",
		map[string]any{"uid": uid, "role": user.Role})
}

// Remove clears a user's role.
func (h *RoleHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	if err := h.dir.ClearRole(r.Context(), uid); err != nil {
		writeDirectoryError(w, err, "failed to remove user role")
		return
	}

	writeSuccess(w, "User role removed successfully", map[string]any{"uid": uid})
}

type createUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// CreateUser provisions a new user with a role in one step.
func (h *RoleHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		writeError(w, auth.ValidationError("email, password, and role are required"))
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	uid, err := directory.CreateUserWithRole(r.Context(), h.dir, req.Email, req.Password, req.DisplayName, role)
	if err != nil {
		writeDirectoryError(w, err, "failed to create user with role")
		return
	}

	writeSuccess(w, "User created successfully with role", map[string]any{
		"uid":          uid,
		"email":        req.Email,
		"role":         string(role),
		"display_name": req.DisplayName,
	})
}

// List returns all users holding a role.
func (h *RoleHandlers) List(w http.ResponseWriter, r *http.Request) {
	role, err := auth.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := h.dir.ListUsersByRole(r.Context(), role)
	if err != nil {
		writeDirectoryError(w, err, "failed to list users by role")
		return
	}
	if users == nil {
		users = []directory.UserSummary{}
	}

	writeSuccess(w, fmt.Sprintf("Users with role %s retrieved successfully", role),
		map[string]any{"role": string(role), "users": users, "count": len(users)})
}

// MyRole returns the calling user's role.
func (h *RoleHandlers) MyRole(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, auth.Unauthorized("no authenticated identity"))
		return
	}
	if claims.Role == "" {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "role not found, please contact an administrator"})
		return
	}

	writeSuccess(w, "Your role retrieved successfully", map[string]any{
		"uid":   claims.UID,
		"role":  claims.Role,
		"email": claims.Email,
	})
}

// ValidRoles returns the closed role set.
func (h *RoleHandlers) ValidRoles(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "Valid roles retrieved successfully",
		map[string]any{"roles": auth.RoleNames()})
}

// DeleteUser removes a user record.
func (h *RoleHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	if err := h.dir.DeleteUser(r.Context(), uid); err != nil {
		writeDirectoryError(w, err, "failed to delete user")
		return
	}

	writeSuccess(w, "User deleted successfully", map[string]any{"uid": uid})
}

// writeDirectoryError classifies a provider failure: lookup misses become
// 404s, everything else surfaces as an internal failure with a stable
// message. Token-state not-found errors keep their 400 mapping; only user
// lookups report 404.
func writeDirectoryError(w http.ResponseWriter, err error, detail string) {
	if errors.Is(err, directory.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "user not found"})
		return
	}
	var ae *auth.Error
	if errors.As(err, &ae) {
		writeError(w, ae)
		return
	}
	writeError(w, &auth.Error{Kind: auth.KindProvisionFailed, Detail: detail, Err: err})
}
