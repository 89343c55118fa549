package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Answer ordering policies accepted in ANSWER_POLICY.
const (
	AnswerPolicyShuffle    = "shuffle"
	AnswerPolicyRoundRobin = "round_robin"
)

type Config struct {
	RegistryAddr        string
	RegistryReadTimeout time.Duration
	RegistryMaxPayload  int64

	// HTTPPort and GRPCPort are 0 when the admin API and the health service are disabled.
	HTTPPort int
	GRPCPort int

	DNSAddr       string
	UpstreamDNS   []string
	DNSTimeout    time.Duration
	DNSTTL        time.Duration
	AnswerPolicy  string
	UpstreamCache bool

	IndexPath         string
	IndexZone         string
	IndexActions      []string
	IndexFromRegistry bool
	RedisAddr         string

	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("REGISTRY_ADDR", ":8674")
	v.SetDefault("REGISTRY_READ_TIMEOUT_MS", 30000)
	v.SetDefault("REGISTRY_MAX_PAYLOAD", 1<<20)
	v.SetDefault("SERVICE_PORT_HTTP", 0)
	v.SetDefault("SERVICE_PORT_GRPC", 0)
	v.SetDefault("DNS_ADDR", ":53")
	v.SetDefault("UPSTREAM_DNS", "8.8.8.8:53,8.8.4.4:53")
	v.SetDefault("DNS_TIMEOUT_MS", 5000)
	v.SetDefault("DNS_TTL", 10)
	v.SetDefault("ANSWER_POLICY", AnswerPolicyShuffle)
	v.SetDefault("UPSTREAM_CACHE", false)
	v.SetDefault("INDEX_ZONE", "org.schema")
	v.SetDefault("INDEX_FROM_REGISTRY", false)
	v.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig loads configuration from environment variables, on top of the YAML file at configPath
// (or CONFIG_PATH when configPath is empty). Keys in the file are the variable names, case-insensitive.
// Every setting has a default; invalid values fail with the offending variable named.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if configPath == "" {
		configPath = v.GetString("CONFIG_PATH")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("can't read config file %s: %w", configPath, err)
		}
	}

	config := &Config{
		RegistryAddr: v.GetString("REGISTRY_ADDR"),
		DNSAddr:      v.GetString("DNS_ADDR"),
		UpstreamDNS:  stringList(v, "UPSTREAM_DNS"),
		AnswerPolicy: strings.ToLower(v.GetString("ANSWER_POLICY")),
		IndexPath:    v.GetString("INDEX_PATH"),
		IndexZone:    strings.TrimSuffix(v.GetString("INDEX_ZONE"), "."),
		IndexActions: stringList(v, "INDEX_ACTIONS"),
		RedisAddr:    v.GetString("REDIS_ADDR"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	var err error
	if config.RegistryReadTimeout, err = millis(v, "REGISTRY_READ_TIMEOUT_MS"); err != nil {
		return nil, err
	}
	if config.DNSTimeout, err = millis(v, "DNS_TIMEOUT_MS"); err != nil {
		return nil, err
	}
	ttl, err := positiveInt(v, "DNS_TTL")
	if err != nil {
		return nil, err
	}
	config.DNSTTL = time.Duration(ttl) * time.Second
	maxPayload, err := positiveInt(v, "REGISTRY_MAX_PAYLOAD")
	if err != nil {
		return nil, err
	}
	config.RegistryMaxPayload = int64(maxPayload)
	if config.HTTPPort, err = port(v, "SERVICE_PORT_HTTP"); err != nil {
		return nil, err
	}
	if config.GRPCPort, err = port(v, "SERVICE_PORT_GRPC"); err != nil {
		return nil, err
	}
	if config.UpstreamCache, err = boolean(v, "UPSTREAM_CACHE"); err != nil {
		return nil, err
	}
	if config.IndexFromRegistry, err = boolean(v, "INDEX_FROM_REGISTRY"); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.RegistryAddr == "" {
		return fmt.Errorf("REGISTRY_ADDR is required")
	}
	if c.DNSAddr == "" {
		return fmt.Errorf("DNS_ADDR is required")
	}
	if len(c.UpstreamDNS) == 0 {
		return fmt.Errorf("UPSTREAM_DNS requires at least one server")
	}
	for i, s := range c.UpstreamDNS {
		if _, _, err := net.SplitHostPort(s); err != nil {
			// A bare host means the standard port.
			c.UpstreamDNS[i] = net.JoinHostPort(s, "53")
		}
	}
	switch c.AnswerPolicy {
	case AnswerPolicyShuffle, AnswerPolicyRoundRobin:
	default:
		return fmt.Errorf("invalid ANSWER_POLICY %q: want %s or %s", c.AnswerPolicy, AnswerPolicyShuffle, AnswerPolicyRoundRobin)
	}
	if c.IndexZone == "" {
		return fmt.Errorf("INDEX_ZONE must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q: want debug, info, warn or error", c.LogLevel)
	}
	return nil
}

// stringList reads a comma separated variable, or a YAML sequence from the config file.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func positiveInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, n)
	}
	return n, nil
}

func millis(v *viper.Viper, key string) (time.Duration, error) {
	n, err := positiveInt(v, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

func port(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 || n > 65535 {
		return 0, fmt.Errorf("invalid %s: port %d out of range", key, n)
	}
	return n, nil
}

func boolean(v *viper.Viper, key string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
