// Package access answers which capabilities an actor holds and how a payment
// method is routed. It is the only place that knows the shape of the role
// configuration.
package access

import (
	"github.com/dvloznov/exchange-desk/internal/config"
	"github.com/dvloznov/exchange-desk/internal/domain"
)

// Capabilities is the resolved capability set of an actor.
type Capabilities struct {
	Staff            bool `json:"staff"`
	Exchanger        bool `json:"exchanger"`
	BlacklistManager bool `json:"blacklist_manager"`
}

// Routing is where a send method's tickets go.
type Routing struct {
	Category string `json:"category,omitempty"`
	PingRole string `json:"ping_role,omitempty"`
}

// Resolver is the read-only capability and configuration lookup.
type Resolver interface {
	Resolve(actor domain.Actor) Capabilities
	Route(method domain.Method) Routing
}

// DeskResolver resolves capabilities from a desk file.
type DeskResolver struct {
	desk *config.Desk
}

// NewDeskResolver returns a resolver over desk.
func NewDeskResolver(desk *config.Desk) *DeskResolver {
	if desk == nil {
		desk = &config.Desk{}
	}
	return &DeskResolver{desk: desk}
}

// Resolve implements Resolver. Staff can do everything an exchanger can.
func (r *DeskResolver) Resolve(actor domain.Actor) Capabilities {
	staff := holds(r.desk.Staff, actor)
	return Capabilities{
		Staff:            staff,
		Exchanger:        staff || holds(r.desk.Exchangers, actor),
		BlacklistManager: holds(r.desk.BlacklistManagers, actor),
	}
}

// Route implements Resolver. Methods without their own category fall back
// to the default category.
func (r *DeskResolver) Route(method domain.Method) Routing {
	mr := r.desk.Methods[string(method)]
	rt := Routing{Category: mr.Category, PingRole: mr.PingRole}
	if rt.Category == "" {
		rt.Category = r.desk.Categories.Default
	}
	return rt
}

func holds(m config.Members, actor domain.Actor) bool {
	for _, u := range m.Users {
		if u == actor.ID {
			return true
		}
	}
	for _, want := range m.Roles {
		for _, have := range actor.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

var _ Resolver = (*DeskResolver)(nil)
