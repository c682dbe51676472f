// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// cdsemulator serves a development contact discovery enclave.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/spf13/cobra"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/common"
	"github.com/katzenpost/cds/config"
	"github.com/katzenpost/cds/core/log"
	"github.com/katzenpost/cds/emulator"
	"github.com/katzenpost/cds/internal/profiling"
)

// Config holds the command line configuration
type Config struct {
	ConfigFile string
	Listen     string
	Enclave    string
	Registered string
	HTTP3      bool
	Username   string
	Password   string
}

func newRootCommand() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:   "cdsemulator",
		Short: "Development contact discovery enclave",
		Long: `cdsemulator serves the attestation and discovery endpoints of a contact
discovery enclave for local development and integration testing.

It performs no real remote attestation.  Registered users are read from a
directory file of "<e164> <uuid>" lines.  Request ids are single use, and a
replayed query is answered with 409 Conflict just like the real service.`,
		Example: `  # Serve with a configuration file
  cdsemulator -f emulator.toml

  # Serve without a configuration file
  cdsemulator --listen 127.0.0.1:8080 --enclave development --registered directory.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "f", "",
		"path to the emulator configuration file (TOML format)")
	cmd.Flags().StringVar(&cfg.Listen, "listen", "",
		"address to listen on")
	cmd.Flags().StringVar(&cfg.Enclave, "enclave", "",
		"enclave name to serve")
	cmd.Flags().StringVar(&cfg.Registered, "registered", "",
		"directory file of registered users")
	cmd.Flags().BoolVar(&cfg.HTTP3, "http3", false,
		"serve HTTP/3 over QUIC (requires TLS in the config file)")
	cmd.Flags().StringVar(&cfg.Username, "username", "",
		"required basic auth username")
	cmd.Flags().StringVar(&cfg.Password, "password", "",
		"required basic auth password")

	return cmd
}

func main() {
	rootCmd := newRootCommand()
	common.ExecuteWithFang(rootCmd)
}

func loadConfig(cfg Config) (*config.EmulatorConfig, error) {
	var emuCfg *config.EmulatorConfig
	if cfg.ConfigFile != "" {
		var err error
		if emuCfg, err = config.LoadEmulatorFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load config file '%v': %v", cfg.ConfigFile, err)
		}
	} else {
		emuCfg = &config.EmulatorConfig{Emulator: &config.Emulator{}}
	}

	e := emuCfg.Emulator
	if cfg.Listen != "" {
		e.Listen = cfg.Listen
	}
	if cfg.Enclave != "" {
		e.EnclaveName = cfg.Enclave
	}
	if cfg.Registered != "" {
		e.Directory = cfg.Registered
	}
	if cfg.HTTP3 {
		e.HTTP3 = true
	}
	if cfg.Username != "" {
		e.Username = cfg.Username
	}
	if cfg.Password != "" {
		e.Password = cfg.Password
	}
	if err := emuCfg.FixupAndValidate(); err != nil {
		return nil, fmt.Errorf("invalid emulator configuration: %v", err)
	}
	return emuCfg, nil
}

func run(ctx context.Context, cfg Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	emuCfg, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	backend, err := log.New(emuCfg.Logging.File, emuCfg.Logging.Level, emuCfg.Logging.Disable)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %v", err)
	}
	if err := backend.SetModuleLevels(emuCfg.Logging.ModuleLevels); err != nil {
		return err
	}
	logger := backend.GetLogger("cdsemulator")
	common.RotateLogOnSIGHUP(ctx, backend, logger)

	stopProfiling, err := profiling.Start(logger, "cdsemulator")
	if err != nil {
		logger.Warningf("Profiling disabled: %v", err)
	} else {
		defer stopProfiling()
	}

	e := emuCfg.Emulator
	enclaves := make([]attestation.ID, 0, len(e.Enclaves))
	for _, id := range e.Enclaves {
		enclaves = append(enclaves, attestation.ID(id))
	}
	em, err := emulator.New(&emulator.Config{
		EnclaveName:                   e.EnclaveName,
		Enclaves:                      enclaves,
		Auth:                          attestation.Auth{Username: e.Username, Password: e.Password},
		CensorshipCircumventionPrefix: e.CensorshipCircumventionPrefix,
	}, backend.GetLogger("emulator"))
	if err != nil {
		return err
	}
	if e.Directory != "" {
		f, err := os.Open(e.Directory)
		if err != nil {
			return err
		}
		n, err := em.LoadDirectory(f)
		f.Close()
		if err != nil {
			return err
		}
		logger.Noticef("Registered %d users from %s", n, e.Directory)
	}

	return serve(ctx, e, em.Handler(), backend, logger)
}

func serve(ctx context.Context, e *config.Emulator, handler http.Handler, backend *log.Backend, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	var shutdown func() error

	switch {
	case e.HTTP3:
		srv := &http3.Server{Addr: e.Listen, Handler: handler}
		go func() { errCh <- srv.ListenAndServeTLS(e.TLSCertificate, e.TLSKey) }()
		shutdown = srv.Close
		logger.Noticef("Serving enclave %q over HTTP/3 on %s", e.EnclaveName, e.Listen)
	default:
		srv := &http.Server{
			Addr:              e.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          backend.GetGoLogger("cdsemulator/http", "WARNING"),
		}
		go func() {
			if e.TLSCertificate != "" {
				errCh <- srv.ListenAndServeTLS(e.TLSCertificate, e.TLSKey)
				return
			}
			errCh <- srv.ListenAndServe()
		}()
		shutdown = func() error {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		}
		logger.Noticef("Serving enclave %q on %s", e.EnclaveName, e.Listen)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Notice("Shutting down")
		return shutdown()
	}
}
