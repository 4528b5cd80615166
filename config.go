// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"os"
	"time"

	"github.com/intuitivelabs/bytescase"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// defaults
const (
	DefaultQueueLen     = 1024
	DefaultDrainTimeout = 30 * time.Second
	DefaultT316Retrans  = 2
)

// Config is the library configuration.
type Config struct {
	QueueLen     int           `yaml:"queue_len"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	Interfaces   []IntfConfig  `yaml:"interfaces"`
}

// IntfConfig is the configuration of one interface.
type IntfConfig struct {
	Name       string   `yaml:"name"`
	Role       Role     `yaml:"role"`
	Type       IntfType `yaml:"type"`
	Multipoint bool     `yaml:"multipoint"`
	NetRole    NetRole  `yaml:"net_role"`
	CallRefLen int      `yaml:"call_ref_len"` // 0 = interface type default
	// timer overrides in seconds, by name ("T303": 6), 0 = default
	Timers           map[string]uint `yaml:"timers"`
	TonesOption      bool            `yaml:"tones_option"`
	OverlapReceiving bool            `yaml:"overlap_receiving"`
	CLIR             bool            `yaml:"clir"`
	HideRestricted   bool            `yaml:"hide_restricted"`
	T316Retrans      int             `yaml:"t316_retrans"`
}

// name tables used for parsing, several names per value
type enumName struct {
	name string
	val  uint8
}

var roleNames = []enumName{
	{"te", uint8(RoleTE)}, {"user", uint8(RoleTE)},
	{"nt", uint8(RoleNT)}, {"network", uint8(RoleNT)},
}

var intfTypeNames = []enumName{
	{"bra", uint8(IntfBRA)}, {"basic", uint8(IntfBRA)},
	{"pra", uint8(IntfPRA)}, {"primary", uint8(IntfPRA)},
}

var netRoleNames = []enumName{
	{"user", uint8(NetRoleUser)},
	{"private", uint8(NetRolePrivate)},
	{"local", uint8(NetRoleLocal)},
	{"transit", uint8(NetRoleTransit)},
	{"international", uint8(NetRoleIntl)}, {"intl", uint8(NetRoleIntl)},
}

func lookupEnum(tbl []enumName, s []byte) (uint8, bool) {
	for _, e := range tbl {
		if bytescase.CmpEq(s, []byte(e.name)) {
			return e.val, true
		}
	}
	return 0, false
}

func decodeEnum(n *yaml.Node, tbl []enumName, what string) (uint8, error) {
	var s string
	if err := n.Decode(&s); err != nil {
		return 0, err
	}
	v, ok := lookupEnum(tbl, []byte(s))
	if !ok {
		return 0, errors.Errorf("line %d: invalid %s %q", n.Line, what, s)
	}
	return v, nil
}

// UnmarshalYAML implements yaml.Unmarshaler ("te", "nt", ...).
func (r *Role) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, roleNames, "role")
	*r = Role(v)
	return err
}

// UnmarshalYAML implements yaml.Unmarshaler ("bra", "pra").
func (t *IntfType) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, intfTypeNames, "interface type")
	*t = IntfType(v)
	return err
}

// UnmarshalYAML implements yaml.Unmarshaler ("user", "private", ...).
func (nr *NetRole) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, netRoleNames, "network role")
	*nr = NetRole(v)
	return err
}

// TimerFromName returns the timer for a case-insensitive name ("T303",
// "t303").
func TimerFromName(name []byte) (TimerID, bool) {
	for t := T301; t < TimerNumber; t++ {
		if bytescase.CmpEq(name, []byte(timer2Name[t])) {
			return t, true
		}
	}
	return TimerNumber, false
}

// ParseConfig parses a YAML configuration and validates it.
func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg, err := ParseConfig(b)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", file)
	}
	return cfg, nil
}

// Validate checks the configuration and fills in the defaults.
func (cfg *Config) Validate() error {
	if cfg.QueueLen == 0 {
		cfg.QueueLen = DefaultQueueLen
	}
	if cfg.QueueLen < 0 {
		return errors.Errorf("invalid queue_len %d", cfg.QueueLen)
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	names := map[string]bool{}
	for i := range cfg.Interfaces {
		ic := &cfg.Interfaces[i]
		if err := ic.Validate(); err != nil {
			return errors.Wrapf(err, "interfaces[%d]", i)
		}
		if names[ic.Name] {
			return errors.Wrapf(ErrIntfExists, "interfaces[%d] %q", i,
				ic.Name)
		}
		names[ic.Name] = true
	}
	return nil
}

// Validate checks the interface configuration and fills in the
// defaults.
func (ic *IntfConfig) Validate() error {
	if ic.Name == "" {
		return errors.New("missing name")
	}
	if ic.Role > RoleNT {
		return errors.Errorf("%s: invalid role %d", ic.Name, ic.Role)
	}
	if ic.Type > IntfPRA {
		return errors.Errorf("%s: invalid type %d", ic.Name, ic.Type)
	}
	if ic.NetRole > NetRoleIntl {
		return errors.Errorf("%s: invalid net_role %d", ic.Name, ic.NetRole)
	}
	if ic.Multipoint && ic.Type != IntfBRA {
		return errors.Errorf("%s: multipoint allowed only on bra",
			ic.Name)
	}
	if ic.CallRefLen == 0 {
		ic.CallRefLen = 1
		if ic.Type == IntfPRA {
			ic.CallRefLen = 2
		}
	}
	if ic.CallRefLen < 1 || ic.CallRefLen > 2 {
		return errors.Errorf("%s: invalid call_ref_len %d", ic.Name,
			ic.CallRefLen)
	}
	for name := range ic.Timers {
		if _, ok := TimerFromName([]byte(name)); !ok {
			return errors.Errorf("%s: unknown timer %q", ic.Name, name)
		}
	}
	if ic.T316Retrans == 0 {
		ic.T316Retrans = DefaultT316Retrans
	}
	if ic.T316Retrans < 0 {
		return errors.Errorf("%s: invalid t316_retrans %d", ic.Name,
			ic.T316Retrans)
	}
	return nil
}
