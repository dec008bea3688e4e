package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Members lists user ids and role ids granted a capability.
type Members struct {
	Users []string `yaml:"users"`
	Roles []string `yaml:"roles"`
}

// MethodRouting says where tickets for a send method are created and who is pinged.
type MethodRouting struct {
	Category string `yaml:"category"`
	PingRole string `yaml:"ping_role"`
}

// Categories are the channel categories tickets move between.
type Categories struct {
	Default   string `yaml:"default"`
	Completed string `yaml:"completed"`
	Cancelled string `yaml:"cancelled"`
}

// Desk is the role and routing configuration of an exchange desk.
type Desk struct {
	Staff             Members                  `yaml:"staff"`
	Exchangers        Members                  `yaml:"exchangers"`
	BlacklistManagers Members                  `yaml:"blacklist_managers"`
	MiddlemanRole     string                   `yaml:"middleman_role"`
	EveryoneRole      string                   `yaml:"everyone_role"`
	Categories        Categories               `yaml:"categories"`
	Methods           map[string]MethodRouting `yaml:"methods"`
}

// LoadDesk reads the desk file at path.
func LoadDesk(path string) (*Desk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read desk file %q: %w", path, err)
	}
	return ParseDesk(raw)
}

// ParseDesk decodes a desk file.
func ParseDesk(raw []byte) (*Desk, error) {
	var d Desk
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse desk file: %w", err)
	}
	if d.Methods == nil {
		d.Methods = map[string]MethodRouting{}
	}
	return &d, nil
}
