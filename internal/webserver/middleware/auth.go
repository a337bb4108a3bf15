package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/webserver/weberror"
)

// Identity headers.
const (
	HeaderActorID          = "X-Actor-ID"
	HeaderActorName        = "X-Actor-Name"
	HeaderActorPermissions = "X-Actor-Permissions"
	HeaderActorLocation    = "X-Actor-Location"
)

const actorKey = "actor"

// An Actor is the identity of the HTTP caller.
// It has no personal inventory: everything given to it is returned as leftovers.
type Actor struct {
	id          uuid.UUID
	name        string
	permissions map[string]bool
	location    *model.Position
}

// ID implements manager.Actor.
func (a *Actor) ID() uuid.UUID {
	return a.id
}

// Name implements manager.Actor.
func (a *Actor) Name() string {
	return a.name
}

// HasPermission implements manager.Actor.
func (a *Actor) HasPermission(permission string) bool {
	return a.permissions[permission]
}

// Give implements manager.Actor.
func (a *Actor) Give(stacks ...*model.ItemStack) []*model.ItemStack {
	return stacks
}

// Location implements manager.Actor.
func (a *Actor) Location() *model.Position {
	return a.location
}

// Authenticate reads the actor identity from the request headers.
func Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header

			id, err := uuid.FromString(h.Get(HeaderActorID))
			if err != nil || id == uuid.Nil {
				return weberror.New(http.StatusUnauthorized, "missing or invalid "+HeaderActorID)
			}

			actor := &Actor{
				id:          id,
				name:        strings.TrimSpace(h.Get(HeaderActorName)),
				permissions: map[string]bool{},
				location:    ParseLocation(h.Get(HeaderActorLocation)),
			}
			if actor.name == "" {
				actor.name = id.String()
			}
			for _, permission := range strings.Split(h.Get(HeaderActorPermissions), ",") {
				if permission = strings.TrimSpace(permission); permission != "" {
					actor.permissions[permission] = true
				}
			}

			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// CurrentActor returns the actor set by Authenticate.
func CurrentActor(c echo.Context) *Actor {
	actor, _ := c.Get(actorKey).(*Actor)
	return actor
}

// ParseLocation parses a "world,x,y,z" location. It returns nil when raw is malformed.
func ParseLocation(raw string) *model.Position {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil
	}

	var coords [3]int
	for i, part := range parts[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil
		}
		coords[i] = n
	}

	p := &model.Position{
		World: strings.TrimSpace(parts[0]),
		X:     coords[0],
		Y:     coords[1],
		Z:     coords[2],
	}
	if !p.IsValid() {
		return nil
	}
	return p
}
