package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// TokenClaims are the HS256 claims issued to API clients. Sub is the user id
// that scopes every project query.
type TokenClaims struct {
	Sub       string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Exp       int64  `json:"exp"`
	NotBefore int64  `json:"nbf,omitempty"`
	Issuer    string `json:"iss"`
	Audience  string `json:"aud"`
}

var (
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenSignature = errors.New("invalid signature")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenNotYet    = errors.New("token not yet valid")
	ErrTokenClaims    = errors.New("token claims rejected")
)

type userKey string

const userIDKey userKey = "user_id"

var jwtHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

func SignJWT(secret string, claims TokenClaims) (string, error) {
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	data := jwtHeader + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return data + "." + hmacSign(secret, data), nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier checks HS256 tokens. Issuer and Audience are only enforced when
// set; Leeway absorbs clock skew on exp and nbf.
type Verifier struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration

	now func() time.Time
}

func VerifyJWT(secret, token string) (*TokenClaims, error) {
	return Verifier{Secret: secret}.Verify(token)
}

func (v Verifier) Verify(token string) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}
	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrTokenMalformed
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(rawHeader, &header); err != nil || header.Alg != "HS256" {
		return nil, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(hmacSign(v.Secret, parts[0]+"."+parts[1])), []byte(parts[2])) {
		return nil, ErrTokenSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrTokenMalformed
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenMalformed
	}

	now := time.Now()
	if v.now != nil {
		now = v.now()
	}
	leeway := int64(v.Leeway / time.Second)
	switch {
	case claims.Exp != 0 && now.Unix() > claims.Exp+leeway:
		return nil, ErrTokenExpired
	case claims.NotBefore != 0 && now.Unix() < claims.NotBefore-leeway:
		return nil, ErrTokenNotYet
	case v.Issuer != "" && claims.Issuer != v.Issuer:
		return nil, ErrTokenClaims
	case v.Audience != "" && claims.Audience != v.Audience:
		return nil, ErrTokenClaims
	case strings.TrimSpace(claims.Sub) == "":
		return nil, ErrTokenClaims
	}
	return &claims, nil
}

// AuthJWT requires a bearer token and stores its subject as the user id.
func AuthJWT(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
				return
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization")
				return
			}
			claims, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.Sub)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if strings.TrimSpace(userID) == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}
