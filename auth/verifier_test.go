package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestJWTVerifier_Verify(t *testing.T) {
	key := []byte("test-signing-key")
	verifier := NewJWTVerifier(JWTVerifierConfig{}, NewStaticKeyProvider(key))

	authTime := time.Now().Add(-time.Minute).Unix()
	tokenString := signToken(t, key, jwt.MapClaims{
		"sub":            "user-1",
		"role":           "doctor",
		"email":          "doc@example.com",
		"email_verified": true,
		"name":           "Dr. Example",
		"auth_time":      float64(authTime),
		"exp":            time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.Verify(context.Background(), tokenString)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if claims.UID != "user-1" {
		t.Errorf("UID = %q, want user-1", claims.UID)
	}
	if claims.Role != "doctor" {
		t.Errorf("Role = %q, want doctor", claims.Role)
	}
	if claims.Email != "doc@example.com" {
		t.Errorf("Email = %q, want doc@example.com", claims.Email)
	}
	if !claims.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
	if claims.AuthTime.Unix() != authTime {
		t.Errorf("AuthTime = %v, want unix %d", claims.AuthTime, authTime)
	}
	if _, ok := claims.Raw["sub"]; !ok {
		t.Error("Raw is missing the sub claim")
	}
}

func TestJWTVerifier_Verify_Failures(t *testing.T) {
	key := []byte("test-signing-key")

	tests := []struct {
		name     string
		config   JWTVerifierConfig
		token    string
		tokenFor func() string
	}{
		{
			name:   "garbage token",
			config: JWTVerifierConfig{},
			token:  "not-a-jwt",
		},
		{
			name:   "wrong signing key",
			config: JWTVerifierConfig{},
			tokenFor: func() string {
				return signToken(t, []byte("other-key"), jwt.MapClaims{"sub": "u1"})
			},
		},
		{
			name:   "expired token",
			config: JWTVerifierConfig{},
			tokenFor: func() string {
				return signToken(t, key, jwt.MapClaims{
					"sub": "u1",
					"exp": time.Now().Add(-time.Hour).Unix(),
				})
			},
		},
		{
			name:   "wrong issuer",
			config: JWTVerifierConfig{Issuer: "https://issuer.example.com"},
			tokenFor: func() string {
				return signToken(t, key, jwt.MapClaims{
					"sub": "u1",
					"iss": "https://other.example.com",
				})
			},
		},
		{
			name:   "wrong audience",
			config: JWTVerifierConfig{Audience: "clinsys"},
			tokenFor: func() string {
				return signToken(t, key, jwt.MapClaims{
					"sub": "u1",
					"aud": "other-app",
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := NewJWTVerifier(tt.config, NewStaticKeyProvider(key))
			token := tt.token
			if tt.tokenFor != nil {
				token = tt.tokenFor()
			}
			if _, err := verifier.Verify(context.Background(), token); err == nil {
				t.Error("Verify() = nil error, want failure")
			}
		})
	}
}

func TestJWTVerifier_CustomClaimNames(t *testing.T) {
	key := []byte("test-signing-key")
	verifier := NewJWTVerifier(JWTVerifierConfig{
		SubjectClaim: "user_id",
		RoleClaim:    "access_level",
	}, NewStaticKeyProvider(key))

	tokenString := signToken(t, key, jwt.MapClaims{
		"user_id":      "user-9",
		"access_level": "admin",
	})

	claims, err := verifier.Verify(context.Background(), tokenString)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UID != "user-9" {
		t.Errorf("UID = %q, want user-9", claims.UID)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
}
