// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package common

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/core/log"
)

// RotateLogOnSIGHUP reopens the log file of backend on every SIGHUP until
// ctx is done.
func RotateLogOnSIGHUP(ctx context.Context, backend *log.Backend, logger *logging.Logger) {
	rotateCh := make(chan os.Signal, 1)
	signal.Notify(rotateCh, syscall.SIGHUP)
	go func() {
		defer signal.Stop(rotateCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-rotateCh:
				if err := backend.Rotate(); err != nil {
					logger.Errorf("Failed to rotate log: %v", err)
				}
			}
		}
	}()
}
