package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Identity is the dashboard user behind a request.
type Identity interface {
	UserID() string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID string
	roles  []string
}

func (i *identity) UserID() string { return i.userID }

func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i *identity) IsAuthenticated() bool { return i.userID != "" }

// GetIdentity reads what AuthRequired stored on the context. Outside an
// authenticated group the identity is anonymous.
func GetIdentity(c *gin.Context) Identity {
	var roles []string
	if raw, ok := c.Get(ContextRolesKey); ok {
		roles, _ = raw.([]string)
	}
	return &identity{userID: c.GetString(ContextUserIDKey), roles: roles}
}
