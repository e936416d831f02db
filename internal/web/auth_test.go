package web

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"extra spaces", "Bearer   abc  ", "abc", true},
		{"wrong scheme", "Basic abc", "", false},
		{"lowercase scheme", "bearer abc", "", false},
		{"empty token", "Bearer ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			token, ok := bearerToken(tt.header)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.token, token)
		})
	}
}

func TestAuthenticator_HS256(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	auth := NewAuthenticator(AuthConfig{HS256Secret: testSecret})

	t.Run("accepts a valid token", func(t *testing.T) {
		uid, err := auth.Verify(ctx, signToken(t, "user_1", time.Now().Add(time.Hour)))
		require.NoError(t, err)
		require.Equal(t, "user_1", uid)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		_, err := auth.Verify(ctx, signToken(t, "user_1", time.Now().Add(-time.Hour)))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token without expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user_1"}).
			SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = auth.Verify(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token without subject", func(t *testing.T) {
		_, err := auth.Verify(ctx, signToken(t, "  ", time.Now().Add(time.Hour)))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a foreign signature", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "user_1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		require.NoError(t, err)
		_, err = auth.Verify(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := auth.Verify(ctx, "not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthenticator_Issuer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	auth := NewAuthenticator(AuthConfig{HS256Secret: testSecret, Issuer: "https://clerk.example.com"})

	_, err := auth.Verify(ctx, signToken(t, "user_1", time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, ErrInvalidToken)

	claims := jwt.RegisteredClaims{
		Subject:   "user_1",
		Issuer:    "https://clerk.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	uid, err := auth.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "user_1", uid)
}

func TestAuthenticator_JWKS(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var fetches atomic.Int32
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": "key-1",
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(jwks.Close)

	auth := NewAuthenticator(AuthConfig{JWKSURL: jwks.URL})
	ctx := context.Background()

	sign := func(kid string) string {
		claims := jwt.RegisteredClaims{Subject: "user_rsa", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = kid
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	uid, err := auth.Verify(ctx, sign("key-1"))
	require.NoError(t, err)
	require.Equal(t, "user_rsa", uid)

	_, err = auth.Verify(ctx, sign("key-1"))
	require.NoError(t, err)
	require.Equal(t, int32(1), fetches.Load(), "keys are cached")

	_, err = auth.Verify(ctx, sign("unknown"))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.Verify(ctx, signToken(t, "user_rsa", time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, ErrInvalidToken, "HS256 is not accepted without a secret")
}

func TestParseRSAPublicKey(t *testing.T) {
	t.Parallel()

	key, err := parseRSAPublicKey(
		base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00}),
		base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00, 0x01}),
	)
	require.NoError(t, err)
	require.Equal(t, 65537, key.E)
	require.Equal(t, int64(256), key.N.Int64())

	_, err = parseRSAPublicKey("!!", "AQAB")
	require.Error(t, err)

	_, err = parseRSAPublicKey("AQAB", "")
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		header string
		status int
		errMsg string
	}{
		{"missing header", "", http.StatusUnauthorized, "authorization required"},
		{"wrong scheme", "Token abc", http.StatusUnauthorized, "invalid Authorization header format"},
		{"invalid token", "Bearer abc", http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.errMsg, decodeBody[errorResponse](t, rec).Error)
		})
	}

	t.Run("health needs no token", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
