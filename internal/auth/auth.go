// Package auth issues and verifies the bearer tokens that identify actors on
// the negotiation API, and resolves a token into a policy.Actor per request.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/policy"
)

type ctxKey string

const actorCtxKey = ctxKey("actor")

// Claims is the JWT payload. Role is advisory only; the actor's effective
// permissions are always re-resolved from the database on each request.
type Claims struct {
	jwt.StandardClaims
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// IssueToken signs a bearer token for the given user.
func IssueToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		UserID: user.ID,
		Role:   user.Role,
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ActorResolver turns an authenticated user id into a policy actor.
type ActorResolver func(ctx context.Context, userID uint) (policy.Actor, error)

// NewDBResolver resolves actors from the users table, loading the project
// scope that employees and clients carry.
func NewDBResolver(db *gorm.DB) ActorResolver {
	return func(ctx context.Context, userID uint) (policy.Actor, error) {
		var user models.User
		if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
			return policy.Actor{}, err
		}
		switch user.Role {
		case models.RoleOwner:
			return policy.Owner(user.ID), nil
		case models.RoleVendor:
			return policy.Vendor(user.ID), nil
		case models.RoleEmployee:
			var ids []uint
			err := db.WithContext(ctx).Model(&models.ProjectAssignment{}).
				Where("user_id = ?", user.ID).Pluck("project_id", &ids).Error
			if err != nil {
				return policy.Actor{}, err
			}
			return policy.Employee(user.ID, ids...), nil
		case models.RoleClient:
			var ids []uint
			err := db.WithContext(ctx).Model(&models.Project{}).
				Where("client_id = ?", user.ID).Pluck("id", &ids).Error
			if err != nil {
				return policy.Actor{}, err
			}
			return policy.Client(user.ID, ids...), nil
		}
		return policy.Actor{}, errors.New("unknown role " + user.Role)
	}
}

// WithActor stores the resolved actor in the context.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext extracts the resolved actor.
func ActorFromContext(ctx context.Context) (policy.Actor, bool) {
	a, ok := ctx.Value(actorCtxKey).(policy.Actor)
	return a, ok
}

// BearerToken pulls the token out of the Authorization header, or the
// access_token query parameter for websocket clients that cannot set headers.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), true
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}
	return "", false
}

// Middleware verifies the bearer token, resolves the actor, and attaches it
// to the request context.
type Middleware struct {
	Secret  string
	Resolve ActorResolver
}

// Require rejects unauthenticated requests with 401 JSON.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		claims, err := ParseToken(m.Secret, token)
		if err != nil {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		actor, err := m.Resolve(r.Context(), claims.UserID)
		if err != nil {
			// Token refers to a deleted user or the lookup failed; both read
			// as unauthorized to the caller.
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// ResolveRequest is the websocket variant of Require: same token sources,
// boolean result instead of a written response.
func (m *Middleware) ResolveRequest(r *http.Request) (policy.Actor, bool) {
	token, ok := BearerToken(r)
	if !ok {
		return policy.Actor{}, false
	}
	claims, err := ParseToken(m.Secret, token)
	if err != nil {
		return policy.Actor{}, false
	}
	actor, err := m.Resolve(r.Context(), claims.UserID)
	if err != nil {
		return policy.Actor{}, false
	}
	return actor, true
}
