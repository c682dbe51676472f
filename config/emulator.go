// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/BurntSushi/toml"
)

// Emulator is the development enclave configuration.
type Emulator struct {
	// Listen is the address to listen on.
	Listen string

	// EnclaveName is the enclave name served.
	EnclaveName string

	// Enclaves are the attestation ids of the emulated enclave instances.
	Enclaves []string

	// Username and Password are the required basic auth credential.
	Username string
	Password string

	// Directory is a file of "<e164> <uuid>" lines to register at startup.
	Directory string

	// CensorshipCircumventionPrefix additionally serves the endpoints
	// under this path prefix.
	CensorshipCircumventionPrefix string

	// TLSCertificate and TLSKey enable TLS, HTTP3 requires them.
	TLSCertificate string
	TLSKey         string
	HTTP3          bool
}

func (e *Emulator) validate() error {
	if e.Listen == "" {
		e.Listen = defaultListenAddress
	}
	if _, _, err := net.SplitHostPort(e.Listen); err != nil {
		return fmt.Errorf("config: Emulator: Listen '%v' is invalid: %w", e.Listen, err)
	}
	name, err := normalizeEnclaveName(e.EnclaveName)
	if err != nil {
		return fmt.Errorf("config: Emulator: %w", err)
	}
	e.EnclaveName = name
	if (e.TLSCertificate == "") != (e.TLSKey == "") {
		return errors.New("config: Emulator: TLSCertificate and TLSKey must be set together")
	}
	if e.HTTP3 && e.TLSCertificate == "" {
		return errors.New("config: Emulator: HTTP3 requires TLSCertificate and TLSKey")
	}
	return nil
}

// EmulatorConfig is the top level emulator configuration.
type EmulatorConfig struct {
	Logging  *Logging
	Emulator *Emulator
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration sections.
func (c *EmulatorConfig) FixupAndValidate() error {
	if c.Emulator == nil {
		return errors.New("config: No Emulator block was present")
	}
	if c.Logging == nil {
		l := defaultLogging
		c.Logging = &l
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	return c.Emulator.validate()
}

// LoadEmulator parses and validates b as an emulator config file body.
func LoadEmulator(b []byte) (*EmulatorConfig, error) {
	cfg := new(EmulatorConfig)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEmulatorFile loads, parses, and validates the emulator config file f.
func LoadEmulatorFile(f string) (*EmulatorConfig, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return LoadEmulator(b)
}
