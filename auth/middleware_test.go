package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testGate() *Gate {
	return NewGate(TokenVerifierFunc(func(_ context.Context, token string) (*Claims, error) {
		switch token {
		case "admin-token":
			return &Claims{UID: "admin-1", Role: "admin"}, nil
		case "patient-token":
			return &Claims{UID: "patient-1", Role: "patient"}, nil
		case "roleless-token":
			return &Claims{UID: "pending-1"}, nil
		default:
			return nil, errors.New("token is not recognized")
		}
	}))
}

func TestRequireAuth(t *testing.T) {
	gate := testGate()

	var gotUID string
	handler := gate.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = UIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUID    string
	}{
		{name: "valid bearer token", header: "Bearer admin-token", wantStatus: http.StatusOK, wantUID: "admin-1"},
		{name: "valid bare token", header: "patient-token", wantStatus: http.StatusOK, wantUID: "patient-1"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bogus", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUID = ""
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUID != tt.wantUID {
				t.Errorf("uid in context = %q, want %q", gotUID, tt.wantUID)
			}

			if tt.wantStatus != http.StatusOK {
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("error body is not JSON: %v", err)
				}
				if success, _ := body["success"].(bool); success {
					t.Error("error body has success=true")
				}
				if _, ok := body["error"]; !ok {
					t.Error("error body is missing the error field")
				}
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	gate := testGate()

	handler := gate.RequireRoles(AdminOnly)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "admin allowed", header: "Bearer admin-token", wantStatus: http.StatusOK},
		{name: "patient forbidden", header: "Bearer patient-token", wantStatus: http.StatusForbidden},
		{name: "roleless forbidden", header: "Bearer roleless-token", wantStatus: http.StatusForbidden},
		{name: "unauthenticated", header: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()

	if got := ClaimsFromContext(ctx); got != nil {
		t.Errorf("ClaimsFromContext(empty) = %v, want nil", got)
	}
	if got := UIDFromContext(ctx); got != "" {
		t.Errorf("UIDFromContext(empty) = %q, want empty", got)
	}

	claims := &Claims{UID: "u1", Role: "doctor"}
	ctx = WithClaims(ctx, claims)

	if got := ClaimsFromContext(ctx); got != claims {
		t.Error("ClaimsFromContext() did not return the attached claims")
	}
	if got := RoleFromContext(ctx); got != "doctor" {
		t.Errorf("RoleFromContext() = %q, want doctor", got)
	}
}
