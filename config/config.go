// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package config implements the configuration for the contact discovery
// client and the development enclave emulator.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/secure/precis"

	"github.com/katzenpost/cds/core/log"
	"github.com/katzenpost/cds/internal/httpclient"
	"github.com/katzenpost/cds/internal/proxy"
)

const (
	defaultLogLevel             = "NOTICE"
	defaultRequestTimeout       = 30
	defaultMaxRetryAfter        = 60
	defaultMaxAttempts          = 3
	defaultMaxConcurrentBatches = 4
	defaultListenAddress        = "127.0.0.1:8443"
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string

	// ModuleLevels overrides Level per logger module, for example
	// discovery = "DEBUG".
	ModuleLevels map[string]string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	for module, l := range lCfg.ModuleLevels {
		if err := log.ValidateLevel(l); err != nil {
			return fmt.Errorf("config: Logging: ModuleLevels: '%v': %v", module, err)
		}
	}
	return nil
}

// CensorshipCircumvention routes discovery requests through a fronting
// domain.
type CensorshipCircumvention struct {
	Enabled bool

	// FrontingURL is the URL actually dialed.
	FrontingURL string

	// Prefix is the path prefix the fronting service maps to the
	// discovery service.
	Prefix string
}

// Service is the discovery service configuration.
type Service struct {
	// URL is the discovery service base URL.
	URL string

	// EnclaveName is the name of the enclave to query.
	EnclaveName string

	// Transport is "https" (default) or "http3".
	Transport string

	// RequestTimeout is the per request timeout in seconds.
	RequestTimeout int

	CensorshipCircumvention *CensorshipCircumvention
}

func (s *Service) validate() error {
	if s.URL == "" {
		return errors.New("config: Service: URL is not set")
	}
	if err := validateURL(s.URL); err != nil {
		return fmt.Errorf("config: Service: %w", err)
	}
	name, err := normalizeEnclaveName(s.EnclaveName)
	if err != nil {
		return fmt.Errorf("config: Service: %w", err)
	}
	s.EnclaveName = name

	switch strings.ToLower(s.Transport) {
	case "", httpclient.TransportHTTPS:
		s.Transport = httpclient.TransportHTTPS
	case httpclient.TransportHTTP3:
		s.Transport = httpclient.TransportHTTP3
	default:
		return fmt.Errorf("config: Service: Transport '%v' is invalid", s.Transport)
	}

	switch {
	case s.RequestTimeout == 0:
		s.RequestTimeout = defaultRequestTimeout
	case s.RequestTimeout < 0:
		return errors.New("config: Service: RequestTimeout is negative")
	}

	if cc := s.CensorshipCircumvention; cc != nil {
		cc.Prefix = strings.Trim(cc.Prefix, "/")
	}
	if cc := s.CensorshipCircumvention; cc != nil && cc.Enabled {
		if err := validateURL(cc.FrontingURL); err != nil {
			return fmt.Errorf("config: Service: CensorshipCircumvention: %w", err)
		}
		if cc.Prefix == "" {
			return errors.New("config: Service: CensorshipCircumvention: Prefix is not set")
		}
	}
	return nil
}

// Attestation is the attestation service configuration.
type Attestation struct {
	// URL is the attestation service base URL, defaults to Service.URL.
	URL string

	// Username and Password are the basic auth credential.
	Username string
	Password string
}

// Discovery tunes the discovery client.
type Discovery struct {
	// MaxConcurrentBatches bounds the batches in flight.
	MaxConcurrentBatches int

	// MaxRetryAfter caps server supplied retry deadlines, in seconds.
	MaxRetryAfter int

	// MaxAttempts bounds the attempts of one discovery.
	MaxAttempts int

	// BackoffDatabase is the path of the persistent backoff ledger, empty
	// disables it.
	BackoffDatabase string
}

func (d *Discovery) fixup() error {
	if d.MaxConcurrentBatches == 0 {
		d.MaxConcurrentBatches = defaultMaxConcurrentBatches
	}
	if d.MaxRetryAfter == 0 {
		d.MaxRetryAfter = defaultMaxRetryAfter
	}
	if d.MaxAttempts == 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	if d.MaxConcurrentBatches < 0 || d.MaxRetryAfter < 0 || d.MaxAttempts < 0 {
		return errors.New("config: Discovery: negative values are invalid")
	}
	return nil
}

// MaxRetryAfterDuration returns MaxRetryAfter as a time.Duration.
func (d *Discovery) MaxRetryAfterDuration() time.Duration {
	return time.Duration(d.MaxRetryAfter) * time.Second
}

// UpstreamProxy is the outgoing connection proxy configuration.
type UpstreamProxy struct {
	// Type is the proxy type (Eg: "none"," socks5").
	Type string

	// Network is the proxy address' network (`unix`, `tcp`).
	Network string

	// Address is the proxy's address.
	Address string

	// User is the optional proxy username.
	User string

	// Password is the optional proxy password.
	Password string
}

func (uCfg *UpstreamProxy) toProxyConfig() (*proxy.Config, error) {
	cfg := &proxy.Config{
		Type:     uCfg.Type,
		Network:  uCfg.Network,
		Address:  uCfg.Address,
		User:     uCfg.User,
		Password: uCfg.Password,
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Debug is the debug configuration.
type Debug struct {
	// DisableTLSVerification accepts any server certificate.  Only use
	// this against the emulator.
	DisableTLSVerification bool
}

// Config is the top level client configuration.
type Config struct {
	Logging       *Logging
	Service       *Service
	Attestation   *Attestation
	Discovery     *Discovery
	UpstreamProxy *UpstreamProxy
	Debug         *Debug

	upstreamProxy *proxy.Config
}

// UpstreamProxyConfig returns the configured upstream proxy, suitable for
// internal use.
func (c *Config) UpstreamProxyConfig() *proxy.Config {
	return c.upstreamProxy
}

// HTTPClientConfig returns the configuration of the HTTP client used for
// both attestation and discovery.
func (c *Config) HTTPClientConfig() *httpclient.Config {
	return &httpclient.Config{
		Transport:          c.Service.Transport,
		Timeout:            time.Duration(c.Service.RequestTimeout) * time.Second,
		Proxy:              c.upstreamProxy,
		ProxyTag:           c.Service.EnclaveName,
		InsecureSkipVerify: c.Debug.DisableTLSVerification,
	}
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration sections.
func (c *Config) FixupAndValidate() error {
	if c.Service == nil {
		return errors.New("config: No Service block was present")
	}
	if c.Logging == nil {
		l := defaultLogging
		c.Logging = &l
	}
	if c.Attestation == nil {
		c.Attestation = &Attestation{}
	}
	if c.Discovery == nil {
		c.Discovery = &Discovery{}
	}
	if c.UpstreamProxy == nil {
		c.UpstreamProxy = &UpstreamProxy{}
	}
	if c.Debug == nil {
		c.Debug = &Debug{}
	}

	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.Service.validate(); err != nil {
		return err
	}
	if c.Attestation.URL == "" {
		c.Attestation.URL = c.Service.URL
	} else if err := validateURL(c.Attestation.URL); err != nil {
		return fmt.Errorf("config: Attestation: %w", err)
	}
	if err := c.Discovery.fixup(); err != nil {
		return err
	}
	uCfg, err := c.UpstreamProxy.toProxyConfig()
	if err != nil {
		return err
	}
	c.upstreamProxy = uCfg
	if c.Service.Transport == httpclient.TransportHTTP3 && uCfg.ToDialContext("") != nil {
		return errors.New("config: HTTP/3 can not be used with an upstream proxy")
	}
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("URL '%v' is invalid: %w", s, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("URL '%v' has unsupported scheme", s)
	}
	if u.Host == "" {
		return fmt.Errorf("URL '%v' has no host", s)
	}
	return nil
}

func normalizeEnclaveName(name string) (string, error) {
	if name == "" {
		return "", errors.New("EnclaveName is not set")
	}
	norm, err := precis.UsernameCaseMapped.String(name)
	if err != nil {
		return "", fmt.Errorf("EnclaveName '%v' is invalid: %w", name, err)
	}
	return norm, nil
}
