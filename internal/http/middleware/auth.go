package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agro-classifieds/internal/domain"
)

const (
	userIDKey = "userID"
	actorKey  = "actor"

	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

// TokenParser turns a bearer token into the actor it was issued for.
// *auth.Service satisfies it.
type TokenParser interface {
	Parse(token string) (domain.Actor, error)
}

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Tokens verifies "Authorization: Bearer" credentials. Nil disables JWT.
	Tokens TokenParser
	// HeaderIdentity accepts X-User-ID / X-User-Name / X-User-Role as the
	// actor. Development and tests only.
	HeaderIdentity bool
}

// Authenticate establishes the request actor.
//
// Requests without credentials continue anonymously; handlers decide whether
// an actor is required. A bearer token that fails verification, or an
// unknown X-User-Role, is rejected with 401 before any handler runs.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h := c.GetHeader("Authorization"); h != "" && opts.Tokens != nil {
			token, ok := bearer(h)
			if !ok {
				abortUnauthorized(c, "malformed Authorization header")
				return
			}
			actor, err := opts.Tokens.Parse(token)
			if err != nil {
				abortUnauthorized(c, "invalid or expired token")
				return
			}
			setActor(c, actor)
			c.Next()
			return
		}

		if opts.HeaderIdentity {
			if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" {
				role, ok := domain.ParseRole(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
				if !ok {
					abortUnauthorized(c, "unknown role")
					return
				}
				setActor(c, domain.Actor{
					ID:   id,
					Name: strings.TrimSpace(c.GetHeader(HeaderUserName)),
					Role: role,
				})
			}
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by Authenticate.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	a, ok := v.(domain.Actor)
	return a, ok && a.ID != ""
}

// UserID returns the authenticated actor id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}

func setActor(c *gin.Context, a domain.Actor) {
	c.Set(actorKey, a)
	c.Set(userIDKey, a.ID)
}

func bearer(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": GetRequestID(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}
