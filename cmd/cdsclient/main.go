// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// cdsclient discovers which phone numbers belong to registered users.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/backoff"
	"github.com/katzenpost/cds/common"
	"github.com/katzenpost/cds/config"
	"github.com/katzenpost/cds/core/log"
	"github.com/katzenpost/cds/core/retry"
	"github.com/katzenpost/cds/discovery"
	"github.com/katzenpost/cds/e164"
	"github.com/katzenpost/cds/internal/httpclient"
	"github.com/katzenpost/cds/internal/instrument"
	"github.com/katzenpost/cds/internal/profiling"
	"github.com/katzenpost/cds/transport"
)

// Config holds the command line configuration
type Config struct {
	ConfigFile  string
	NumbersFile string
	MetricsAddr string
	JSON        bool
}

func newRootCommand() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:   "cdsclient [flags] number...",
		Short: "Private contact discovery client",
		Long: `cdsclient asks a remotely attested contact discovery enclave which of the
given E.164 phone numbers belong to registered users, and prints the matches
with their user UUIDs.

The numbers never leave the client in the clear: each batch of up to 2048
numbers is encrypted under a fresh key that only the attested enclaves can
recover.  Rate limiting and transient server failures are retried with
exponential backoff, honouring the server's Retry-After.`,
		Example: `  # Look up two numbers
  cdsclient -f cds.toml +15551234567 "+49 30 123456"

  # Look up an address book, one number per line, as JSON
  cdsclient -f cds.toml --numbers-file contacts.txt --json

  # Expose Prometheus metrics while running
  cdsclient -f cds.toml --metrics-addr 127.0.0.1:6543 --numbers-file contacts.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "f", "",
		"path to the client configuration file (TOML format)")
	cmd.Flags().StringVar(&cfg.NumbersFile, "numbers-file", "",
		"file with one phone number per line")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on")
	cmd.Flags().BoolVar(&cfg.JSON, "json", false,
		"print results as JSON")

	cmd.MarkFlagRequired("config")

	return cmd
}

func main() {
	rootCmd := newRootCommand()
	common.ExecuteWithFang(rootCmd)
}

type result struct {
	E164 string `json:"e164"`
	UUID string `json:"uuid"`
}

func run(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clientCfg, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config file '%v': %v", cfg.ConfigFile, err)
	}

	numbers := e164.NewSet()
	if err := common.ParseNumbers(numbers, args); err != nil {
		return err
	}
	if cfg.NumbersFile != "" {
		f, err := os.Open(cfg.NumbersFile)
		if err != nil {
			return err
		}
		err = common.ReadNumbers(numbers, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	if numbers.Len() == 0 {
		return errors.New("no phone numbers given")
	}

	backend, err := log.New(clientCfg.Logging.File, clientCfg.Logging.Level, clientCfg.Logging.Disable)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %v", err)
	}
	if err := backend.SetModuleLevels(clientCfg.Logging.ModuleLevels); err != nil {
		return err
	}
	logger := backend.GetLogger("cdsclient")
	common.RotateLogOnSIGHUP(ctx, backend, logger)

	stopProfiling, err := profiling.Start(logger, "cdsclient")
	if err != nil {
		logger.Warningf("Profiling disabled: %v", err)
	} else {
		defer stopProfiling()
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           instrument.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          backend.GetGoLogger("cdsclient/metrics", "WARNING"),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics listener failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	retrier, closeFn, err := newRetrier(clientCfg, backend)
	if err != nil {
		return err
	}
	defer closeFn()

	contacts, err := retrier.Discover(ctx, numbers)
	if err != nil {
		if after, ok := discovery.RetryAfter(err); ok {
			return fmt.Errorf("%v (retry after %s)", err, after.Format(time.RFC3339))
		}
		return err
	}

	sorted := contacts.Sorted()
	if cfg.JSON {
		results := make([]result, 0, len(sorted))
		for _, c := range sorted {
			results = append(results, result{E164: c.E164.String(), UUID: c.UUID.String()})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, c := range sorted {
		fmt.Fprintf(out, "%s %s\n", c.E164, c.UUID)
	}
	return nil
}

func newRetrier(cfg *config.Config, backend *log.Backend) (*discovery.Retrier, func(), error) {
	hc, err := httpclient.New(cfg.HTTPClientConfig())
	if err != nil {
		return nil, nil, err
	}

	serviceURL, err := url.Parse(cfg.Service.URL)
	if err != nil {
		return nil, nil, err
	}
	enclave := attestation.EnclaveConfig{
		EnclaveName: cfg.Service.EnclaveName,
		Host:        serviceURL.Host,
	}
	tCfg := &transport.Config{URL: cfg.Service.URL}
	if cc := cfg.Service.CensorshipCircumvention; cc != nil && cc.Enabled {
		enclave.CensorshipCircumventionPrefix = cc.Prefix
		tCfg.CensorshipCircumvention = true
		tCfg.FrontingURL = cc.FrontingURL
	}

	attestor, err := attestation.NewHTTPAttestor(hc, cfg.Attestation.URL, attestation.Auth{
		Username: cfg.Attestation.Username,
		Password: cfg.Attestation.Password,
	}, enclave, backend.GetLogger("attestation"))
	if err != nil {
		return nil, nil, err
	}
	svc, err := transport.New(hc, tCfg, backend.GetLogger("transport"))
	if err != nil {
		return nil, nil, err
	}

	client := discovery.New(attestor, svc,
		discovery.WithLogger(backend.GetLogger("discovery")),
		discovery.WithMaxConcurrency(cfg.Discovery.MaxConcurrentBatches),
		discovery.WithMaxRetryAfter(cfg.Discovery.MaxRetryAfterDuration()),
	)

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Discovery.MaxAttempts

	closeFn := func() {}
	var opts []discovery.RetrierOption
	if cfg.Discovery.BackoffDatabase != "" {
		ledger, err := backoff.New(cfg.Discovery.BackoffDatabase, backend.GetLogger("backoff"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open backoff database: %v", err)
		}
		opts = append(opts, discovery.WithLedger(ledger, cfg.Service.EnclaveName))
		closeFn = func() { ledger.Close() }
	}
	return discovery.NewRetrier(client, policy, opts...), closeFn, nil
}
