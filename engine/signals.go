// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/pkg/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/flatcar-linux/otaextract", "engine")

// ExtractWithSignals wraps Extract for interactive callers: a SIGINT or
// SIGTERM cancels the extraction's context, letting Extract's normal
// cancellation path abort and clean up rather than leaving partially
// written output behind.
func ExtractWithSignals(ctx context.Context, src *Source, plan *Plan, cfg Config, sinks Sinks) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			plog.Noticef("received %s, aborting extraction", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return Extract(ctx, src, plan, cfg, sinks)
}
