package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "userID"

var (
	errNoBearer   = errors.New("missing bearer token")
	errBadSubject = errors.New("token subject is not a user id")
)

// AuthMiddleware accepts HS256 bearer tokens whose "sub" claim is a positive
// integer user id. Tokens must carry an expiry.
type AuthMiddleware struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthMiddleware(secret []byte) *AuthMiddleware {
	return &AuthMiddleware{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.authenticate(r)
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (int64, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return 0, errNoBearer
	}
	claims := jwt.MapClaims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// subjectID reads "sub" as a JSON number; encoding/json decodes it as float64.
func subjectID(claims jwt.MapClaims) (int64, error) {
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 || sub != math.Trunc(sub) || sub > math.MaxInt64/2 {
		return 0, errBadSubject
	}
	return int64(sub), nil
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "invalid token"
	if errors.Is(err, errNoBearer) {
		msg = "missing token"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="nutristreak"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user, or false outside RequireAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// IssueToken signs a bearer token for userID. Sign-up and login live outside
// this service; operators mint tokens with it for local testing.
func IssueToken(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}).SignedString(secret)
}
