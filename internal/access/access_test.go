package access

import (
	"testing"

	"github.com/dvloznov/exchange-desk/internal/config"
	"github.com/dvloznov/exchange-desk/internal/domain"
)

func testDesk() *config.Desk {
	return &config.Desk{
		Staff:             config.Members{Users: []string{"staff-user"}, Roles: []string{"staff-role"}},
		Exchangers:        config.Members{Roles: []string{"ex-role"}},
		BlacklistManagers: config.Members{Users: []string{"mod"}},
		Categories:        config.Categories{Default: "default-cat"},
		Methods: map[string]config.MethodRouting{
			"PayPal": {Category: "pp-cat", PingRole: "pp-ping"},
		},
	}
}

func TestDeskResolver_Resolve(t *testing.T) {
	r := NewDeskResolver(testDesk())

	tests := []struct {
		name  string
		actor domain.Actor
		want  Capabilities
	}{
		{"nobody", domain.Actor{ID: "u1"}, Capabilities{}},
		{"staff by id", domain.Actor{ID: "staff-user"}, Capabilities{Staff: true, Exchanger: true}},
		{"staff by role", domain.Actor{ID: "u2", Roles: []string{"x", "staff-role"}}, Capabilities{Staff: true, Exchanger: true}},
		{"exchanger by role", domain.Actor{ID: "u3", Roles: []string{"ex-role"}}, Capabilities{Exchanger: true}},
		{"blacklist manager", domain.Actor{ID: "mod"}, Capabilities{BlacklistManager: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.actor); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeskResolver_Route(t *testing.T) {
	r := NewDeskResolver(testDesk())

	if got := r.Route(domain.PayPal); got.Category != "pp-cat" || got.PingRole != "pp-ping" {
		t.Errorf("Route(PayPal) = %+v", got)
	}
	if got := r.Route(domain.Zelle); got.Category != "default-cat" || got.PingRole != "" {
		t.Errorf("Route(Zelle) = %+v", got)
	}
}

func TestNewDeskResolver_NilDesk(t *testing.T) {
	r := NewDeskResolver(nil)
	if got := r.Resolve(domain.Actor{ID: "x"}); got != (Capabilities{}) {
		t.Errorf("Resolve() = %+v, want none", got)
	}
}
