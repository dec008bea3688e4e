// Package provision allocates the private channel a ticket is worked in and
// says how it is retired on closure.
package provision

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dvloznov/exchange-desk/internal/access"
	"github.com/dvloznov/exchange-desk/internal/config"
	"github.com/dvloznov/exchange-desk/internal/domain"
)

// Permission is a single channel permission.
type Permission string

const (
	PermView    Permission = "view_channel"
	PermSend    Permission = "send_messages"
	PermHistory Permission = "read_message_history"
	PermManage  Permission = "manage_messages"
)

// TargetKind says whether an overwrite applies to a user or a role.
type TargetKind string

const (
	TargetUser TargetKind = "user"
	TargetRole TargetKind = "role"
)

// Overwrite grants or denies permissions to one user or role.
type Overwrite struct {
	Target string       `json:"target"`
	Kind   TargetKind   `json:"kind"`
	Allow  []Permission `json:"allow,omitempty"`
	Deny   []Permission `json:"deny,omitempty"`
}

// Channel is a provisioned ticket channel.
type Channel struct {
	Key        string      `json:"key"`
	Name       string      `json:"name"`
	Category   string      `json:"category,omitempty"`
	PingRole   string      `json:"ping_role,omitempty"`
	Overwrites []Overwrite `json:"overwrites"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Retirement says where a closed ticket's channel goes and which access is revoked.
type Retirement struct {
	Category string      `json:"category,omitempty"`
	Revoke   []Overwrite `json:"revoke,omitempty"`
}

// Provisioner allocates and retires ticket channels.
type Provisioner interface {
	Provision(ctx context.Context, requester domain.Actor, send domain.Method) (Channel, error)
	Retire(ctx context.Context, t domain.Ticket) (Retirement, error)
}

var (
	memberPerms = []Permission{PermView, PermSend, PermHistory}
	staffPerms  = []Permission{PermView, PermSend, PermHistory, PermManage}
)

// Local provisions channels from the desk configuration without calling out
// to a chat platform. Keys are ULIDs.
type Local struct {
	desk   *config.Desk
	routes access.Resolver

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewLocal returns a provisioner over desk.
func NewLocal(desk *config.Desk) *Local {
	if desk == nil {
		desk = &config.Desk{}
	}
	return &Local{
		desk:    desk,
		routes:  access.NewDeskResolver(desk),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Provision implements Provisioner.
func (l *Local) Provision(ctx context.Context, requester domain.Actor, send domain.Method) (Channel, error) {
	if requester.ID == "" {
		return Channel{}, fmt.Errorf("provision: requester id is required")
	}
	if err := ctx.Err(); err != nil {
		return Channel{}, fmt.Errorf("provision: %w", err)
	}

	key, now, err := l.newKey()
	if err != nil {
		return Channel{}, err
	}

	route := l.routes.Route(send)

	return Channel{
		Key:        key,
		Name:       ChannelName(requester),
		Category:   route.Category,
		PingRole:   route.PingRole,
		Overwrites: l.overwrites(requester),
		CreatedAt:  now,
	}, nil
}

// Retire implements Provisioner. The channel moves to the completed or
// cancelled category and the requester loses access.
func (l *Local) Retire(ctx context.Context, t domain.Ticket) (Retirement, error) {
	r := Retirement{
		Revoke: []Overwrite{{Target: t.RequesterID, Kind: TargetUser, Deny: []Permission{PermView}}},
	}
	switch t.Status {
	case domain.StatusCompleted:
		r.Category = l.desk.Categories.Completed
	case domain.StatusCancelled:
		r.Category = l.desk.Categories.Cancelled
	default:
		return Retirement{}, fmt.Errorf("provision: ticket %s is not closed", t.Key)
	}
	return r, nil
}

func (l *Local) newKey() (string, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), l.entropy)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("provision: generate key: %w", err)
	}
	return id.String(), now, nil
}

func (l *Local) overwrites(requester domain.Actor) []Overwrite {
	var out []Overwrite
	if l.desk.EveryoneRole != "" {
		out = append(out, Overwrite{Target: l.desk.EveryoneRole, Kind: TargetRole, Deny: []Permission{PermView}})
	}
	out = append(out, Overwrite{Target: requester.ID, Kind: TargetUser, Allow: memberPerms})
	for _, r := range l.desk.Staff.Roles {
		out = append(out, Overwrite{Target: r, Kind: TargetRole, Allow: staffPerms})
	}
	for _, r := range l.desk.Exchangers.Roles {
		out = append(out, Overwrite{Target: r, Kind: TargetRole, Allow: memberPerms})
	}
	return out
}

// ChannelName derives "exchange-<name>-<last 4 of id>" from the requester.
// The name part is lower-cased, spaces become dashes, and it is cut to 15 characters.
func ChannelName(requester domain.Actor) string {
	name := requester.Name
	if name == "" {
		name = "user"
	}
	if r := []rune(name); len(r) > 15 {
		name = string(r[:15])
	}
	name = strings.ReplaceAll(strings.ToLower(name), " ", "-")

	id := requester.ID
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return fmt.Sprintf("exchange-%s-%s", name, id)
}

var _ Provisioner = (*Local)(nil)
