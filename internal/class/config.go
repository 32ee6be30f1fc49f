// Package class implements the connection-class registry: the
// configuration profiles a connecting client authenticates into, and the
// lookup that matches an incoming (password, host) pair against them.
//
// Loading follows the teacher's layered approach (YAML/TOML file plus
// environment overrides via struct tags), generalised to a list of
// classes rather than a single flat server config.
package class

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Server is one entry in a class's server list.
type Server struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	Pass string `yaml:"pass" toml:"pass"`
}

func (s Server) String() string {
	if s.Port == 0 {
		return s.Host
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DCCOptions configures how outgoing DCC CHAT/SEND is proxied for sessions
// in this class.
type DCCOptions struct {
	ProxyOutgoing bool   `yaml:"proxy_outgoing" toml:"proxy_outgoing"`
	SendFast      bool   `yaml:"send_fast" toml:"send_fast"`
	PortLow       int    `yaml:"port_low" toml:"port_low"`
	PortHigh      int    `yaml:"port_high" toml:"port_high"`
	TunnelHost    string `yaml:"tunnel_host" toml:"tunnel_host"`
	TunnelPort    int    `yaml:"tunnel_port" toml:"tunnel_port"`
	RejectOnFail  bool   `yaml:"reject_on_failure" toml:"reject_on_failure"`
}

// Class is a connection-class configuration profile: the thing an
// incoming client's PASS/host is matched against.
type Class struct {
	Name string `yaml:"name" toml:"name"`

	Password       string `yaml:"password" toml:"password"`
	PasswordHashed bool   `yaml:"password_hashed" toml:"password_hashed"`
	HostMasks      []string `yaml:"host_masks" toml:"host_masks"`

	Servers []Server `yaml:"servers" toml:"servers"`

	DetachNickname string `yaml:"detach_nickname" toml:"detach_nickname"`
	DetachMessage  string `yaml:"detach_message" toml:"detach_message"`
	AttachMessage  string `yaml:"attach_message" toml:"attach_message"`
	AwayMessage    string `yaml:"away_message" toml:"away_message"`
	QuitMessage    string `yaml:"quit_message" toml:"quit_message"`
	DropModes      string `yaml:"drop_modes" toml:"drop_modes"`

	IdlePingInterval int `yaml:"idle_ping_interval" toml:"idle_ping_interval"`
	ClientTimeout    int `yaml:"client_timeout_seconds" toml:"client_timeout_seconds"`
	ConnectTimeout   int `yaml:"connect_timeout_seconds" toml:"connect_timeout_seconds"`

	LogClient bool `yaml:"log_client" toml:"log_client"`

	DCC DCCOptions `yaml:"dcc" toml:"dcc"`

	AllowPersist       bool `yaml:"allow_persist" toml:"allow_persist"`
	AllowDie           bool `yaml:"allow_die" toml:"allow_die"`
	AllowJump          bool `yaml:"allow_jump" toml:"allow_jump"`
	AllowJumpNew       bool `yaml:"allow_jump_new" toml:"allow_jump_new"`
	AllowHost          bool `yaml:"allow_host" toml:"allow_host"`
	DisconnectExisting bool `yaml:"disconnect_existing" toml:"disconnect_existing"`
	DisconnectOnDetach bool `yaml:"disconnect_on_detach" toml:"disconnect_on_detach"`
	ServerAutoconnect  bool `yaml:"server_autoconnect" toml:"server_autoconnect"`
	ChannelLeaveOnDetach  bool `yaml:"channel_leave_on_detach" toml:"channel_leave_on_detach"`
	ChannelRejoinOnAttach bool `yaml:"channel_rejoin_on_attach" toml:"channel_rejoin_on_attach"`

	Channels []ChannelConfig `yaml:"channels" toml:"channels"`

	// cursor index into Servers, the "next server to try".
	nextServer int
}

// ChannelConfig is a channel the session should join on bind-fresh.
type ChannelConfig struct {
	Name string `yaml:"name" toml:"name"`
	Key  string `yaml:"key" toml:"key"`
}

// NextServer returns the server the cursor currently points at, or the
// zero value and false if the class has no servers configured.
func (c *Class) NextServer() (Server, bool) {
	if len(c.Servers) == 0 {
		return Server{}, false
	}
	if c.nextServer < 0 || c.nextServer >= len(c.Servers) {
		c.nextServer = 0
	}
	return c.Servers[c.nextServer], true
}

// NextServerIndex returns the cursor's current position.
func (c *Class) NextServerIndex() int { return c.nextServer }

// SetNextServerIndex moves the cursor; an out-of-range index is ignored.
func (c *Class) SetNextServerIndex(i int) {
	if i < 0 || i >= len(c.Servers) {
		return
	}
	c.nextServer = i
}

// AppendServer adds a new server entry, used by /DIRCPROXY JUMP when
// allow_jump_new permits creating entries that were not preconfigured.
func (c *Class) AppendServer(s Server) int {
	c.Servers = append(c.Servers, s)
	return len(c.Servers) - 1
}

// Config is the top-level configuration document: a list of connection
// classes plus process-wide settings.
type Config struct {
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr" env:"DIRCPROXY_LISTEN_ADDR" envDefault:"0.0.0.0:6667"`
	AdminAddr  string `yaml:"admin_addr" toml:"admin_addr" env:"DIRCPROXY_ADMIN_ADDR" envDefault:""`
	LogDir     string `yaml:"log_dir" toml:"log_dir" env:"DIRCPROXY_LOG_DIR" envDefault:""`

	Classes []*Class `yaml:"classes" toml:"classes"`

	// Source is the file path this config was loaded from, retained for
	// Reload and for the fsnotify watcher.
	Source string `yaml:"-" toml:"-"`
}

// Load reads a YAML or TOML configuration file (chosen by extension) and
// applies environment-variable overrides on top of it.
func Load(source string) (*Config, error) {
	cfg := &Config{Source: source}

	if source != "" {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		switch {
		case strings.HasSuffix(source, ".toml"):
			err = toml.Unmarshal(data, cfg)
		default:
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", source, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}
	cfg.Source = source
	return cfg, nil
}

// Reload re-reads Source and replaces cfg's contents in place, preserving
// each class's server cursor by name where the class still exists.
func (cfg *Config) Reload() error {
	cursors := make(map[string]int, len(cfg.Classes))
	for _, c := range cfg.Classes {
		cursors[c.Name] = c.nextServer
	}

	next, err := Load(cfg.Source)
	if err != nil {
		return err
	}
	for _, c := range next.Classes {
		if idx, ok := cursors[c.Name]; ok {
			c.SetNextServerIndex(idx)
		}
	}
	*cfg = *next
	return nil
}
