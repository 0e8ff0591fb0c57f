// Package config loads and validates lanscan settings from the environment
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable (MY_SUBNET_CIDR, ...).
const EnvPrefix = "MY"

// Keys recognised by Load.
const (
	KeySubnetCIDR   = "subnet_cidr"
	KeyHostIPv4     = "host_ipv4"
	KeyHostMAC      = "host_mac"
	KeyBaseURL      = "rest_api_base_url"
	KeyPort         = "rest_api_port"
	KeyWorkers      = "num_processes"
	KeyBindAddress  = "bind_address"
	KeyProbeTimeout = "probe_timeout"
	KeyPrivileged   = "privileged"
	KeyARPTablePath = "arp_table_path"
	KeyProbeRate    = "probe_rate"
	KeyDebug        = "debug"
	KeyMQTTBroker   = "mqtt.broker"
	KeyMQTTTopic    = "mqtt.topic"
	KeyMQTTClientID = "mqtt.client_id"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// MQTTSettings configures the optional snapshot push to an MQTT broker.
// An empty Broker disables it.
type MQTTSettings struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// Settings is the validated lanscan configuration.
type Settings struct {
	SubnetCIDR   string        `mapstructure:"subnet_cidr"`
	HostIPv4     string        `mapstructure:"host_ipv4"`
	HostMAC      string        `mapstructure:"host_mac"`
	BaseURL      string        `mapstructure:"rest_api_base_url"`
	Port         int           `mapstructure:"rest_api_port"`
	Workers      int           `mapstructure:"num_processes"`
	BindAddress  string        `mapstructure:"bind_address"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Privileged   bool          `mapstructure:"privileged"`
	ARPTablePath string        `mapstructure:"arp_table_path"`
	ProbeRate    float64       `mapstructure:"probe_rate"`
	Debug        bool          `mapstructure:"debug"`
	MQTT         MQTTSettings  `mapstructure:"mqtt"`
}

// DefaultSettings returns the defaults for every optional setting.
func DefaultSettings() *Settings {
	return &Settings{
		BaseURL:      "/lanscan",
		Port:         8003,
		Workers:      40,
		BindAddress:  "0.0.0.0",
		ProbeTimeout: time.Second,
		ARPTablePath: "/proc/net/arp",
		MQTT: MQTTSettings{
			Topic:    "lanscan/snapshot",
			ClientID: "lanscan",
		},
	}
}

// Addr returns the host:port the HTTP server listens on.
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.BindAddress, fmt.Sprint(s.Port))
}

// NewViper returns a viper instance wired to the MY_ environment variables
// with every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultSettings()
	v.SetDefault(KeyBaseURL, d.BaseURL)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyBindAddress, d.BindAddress)
	v.SetDefault(KeyProbeTimeout, d.ProbeTimeout)
	v.SetDefault(KeyPrivileged, d.Privileged)
	v.SetDefault(KeyARPTablePath, d.ARPTablePath)
	v.SetDefault(KeyProbeRate, d.ProbeRate)
	v.SetDefault(KeyDebug, d.Debug)
	v.SetDefault(KeyMQTTTopic, d.MQTT.Topic)
	v.SetDefault(KeyMQTTClientID, d.MQTT.ClientID)

	// Required keys have no default, so they must be bound explicitly for
	// Unmarshal to see them.
	for _, k := range []string{KeySubnetCIDR, KeyHostIPv4, KeyHostMAC, KeyMQTTBroker} {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads settings from the environment and, when path is non-empty,
// from the YAML file at path. Environment variables take precedence.
func Load(path string) (*Settings, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates settings from v.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := DefaultSettings()
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks required settings and normalizes the base URL and
// local IPv4 address.
func (s *Settings) Validate() error {
	if s.SubnetCIDR == "" {
		return fmt.Errorf("%w: MY_SUBNET_CIDR is required", ErrInvalid)
	}
	ip, ipnet, err := net.ParseCIDR(s.SubnetCIDR)
	if err != nil {
		return fmt.Errorf("%w: bad value %q for MY_SUBNET_CIDR: %v", ErrInvalid, s.SubnetCIDR, err)
	}
	if ones, bits := ipnet.Mask.Size(); ip.To4() == nil || bits != 32 || ones != 24 {
		return fmt.Errorf("%w: MY_SUBNET_CIDR %q must be an IPv4 /24", ErrInvalid, s.SubnetCIDR)
	}

	if s.HostIPv4 == "" || s.HostMAC == "" {
		return fmt.Errorf("%w: both MY_HOST_IPV4 and MY_HOST_MAC are required", ErrInvalid)
	}
	ip4 := net.ParseIP(s.HostIPv4).To4()
	if ip4 == nil {
		return fmt.Errorf("%w: MY_HOST_IPV4 %q is not an IPv4 address", ErrInvalid, s.HostIPv4)
	}
	// Probed records are keyed by dotted quad, so the self entry must be too.
	s.HostIPv4 = ip4.String()

	// The MAC is published exactly as configured, so only the colon
	// separated 48-bit form is accepted.
	if hw, err := net.ParseMAC(s.HostMAC); err != nil || len(hw) != 6 || len(s.HostMAC) != 17 || strings.Count(s.HostMAC, ":") != 5 {
		return fmt.Errorf("%w: MY_HOST_MAC %q must look like aa:bb:cc:dd:ee:ff", ErrInvalid, s.HostMAC)
	}

	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%w: MY_REST_API_PORT %d out of range", ErrInvalid, s.Port)
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: MY_NUM_PROCESSES must be at least 1, got %d", ErrInvalid, s.Workers)
	}
	if s.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: probe_timeout must be positive, got %v", ErrInvalid, s.ProbeTimeout)
	}
	if s.ProbeRate < 0 {
		return fmt.Errorf("%w: probe_rate must not be negative, got %v", ErrInvalid, s.ProbeRate)
	}

	s.BaseURL = "/" + strings.Trim(s.BaseURL, "/")
	if s.BaseURL == "/" {
		return fmt.Errorf("%w: MY_REST_API_BASE_URL must not be empty or \"/\"", ErrInvalid)
	}
	return nil
}
