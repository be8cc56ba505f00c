package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// ContextSession is the gin context key holding the request's *Session.
const ContextSession = "session"

// CodeAccountInactive tells the client to drop its token and log out.
const CodeAccountInactive = "account_inactive"

// TokenValidator parses a bearer token and returns the account it was issued to.
type TokenValidator func(token string) (uuid.UUID, error)

// AccountLookup loads the current state of an account. Unknown ids must return
// models.ErrAccountNotFound; any other error is treated as a server failure.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Session is the authenticated caller of one request.
type Session struct {
	AccountID uuid.UUID
	Name      string
	Email     string
	Role      models.Role
}

// IsStaff reports whether the caller holds a staff role.
func (s *Session) IsStaff() bool {
	return s != nil && s.Role.IsStaff()
}

// CurrentSession returns the request's session, or nil on unauthenticated routes.
func CurrentSession(c *gin.Context) *Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}

// JWT returns a middleware that validates the bearer token, reloads the account so that
// role and status are authoritative, and stores a *Session in the context.
func JWT(validate TokenValidator, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		accountID, err := validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		acc, err := accounts.GetByID(c.Request.Context(), accountID)
		if errors.Is(err, models.ErrAccountNotFound) || (err == nil && acc == nil) {
			response.Unauthorized(c, "account not found")
			c.Abort()
			return
		}
		if err != nil {
			response.Internal(c, "failed to load account")
			c.Abort()
			return
		}
		if acc.Status != models.AccountActive {
			response.ForbiddenCode(c, CodeAccountInactive, "account is inactive")
			c.Abort()
			return
		}
		c.Set(ContextSession, &Session{
			AccountID: acc.ID,
			Name:      acc.Name,
			Email:     acc.Email,
			Role:      acc.Role,
		})
		c.Next()
	}
}
