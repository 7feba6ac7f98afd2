/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/devicelock/pkg/version"
)

const (
	ingressReadHeaderTimeout = 5 * time.Second
	ingressShutdownTimeout   = 5 * time.Second
)

// Run drives every background loop until ctx is cancelled. Boot should have run first.
func (a *Agent) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.outbox.Run(ctx, a.cfg.RetryInterval.Or(defaultRetryInterval)) })
	g.Go(func() error { return a.drainLoop(ctx) })
	g.Go(func() error { return a.pruneLoop(ctx) })
	g.Go(func() error { return a.poller.Run(ctx) })

	if a.mqtt != nil {
		g.Go(func() error { return a.keepRunning(ctx, "mqtt", a.mqtt.Run) })
	}

	if a.nats != nil {
		g.Go(func() error { return a.keepRunning(ctx, "nats", a.nats.Run) })
	}

	if !a.cfg.Ingress.Disabled {
		g.Go(func() error { return a.serveIngress(ctx) })
	}

	a.logger.Info().
		Str("device_id", a.deviceID).
		Str("version", version.GetFullVersion()).
		Msg("Agent running")

	return g.Wait()
}

// drainLoop applies queued commands whenever something is enqueued.
func (a *Agent) drainLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.queue.Notify():
			if _, err := a.queue.DrainUnprocessed(ctx, a.machine.Apply); err != nil && ctx.Err() == nil {
				a.logger.Error().Err(err).Msg("Command drain failed")
			}
		}
	}
}

func (a *Agent) pruneLoop(ctx context.Context) error {
	ticker := a.clock.Ticker(a.cfg.PruneInterval.Or(defaultPruneInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if _, err := a.queue.Prune(ctx, a.cfg.QueueRetention.Or(0)); err != nil {
				a.logger.Warn().Err(err).Msg("Command queue prune failed")
			}
		}
	}
}

// keepRunning restarts an optional push channel with doubling backoff. A push channel
// failing never stops the agent; the heartbeat poll still carries commands.
func (a *Agent) keepRunning(ctx context.Context, name string, run func(context.Context) error) error {
	delay := defaultPushRestartDelay

	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		a.logger.Warn().Err(err).Str("channel", name).Dur("retry_in", delay).Msg("Push channel stopped")

		timer := a.clock.Timer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.Chan():
		}

		delay = min(delay*2, defaultPushRestartMaxGap)
	}
}

func (a *Agent) serveIngress(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Ingress.ListenAddr)
	if err != nil {
		return fmt.Errorf("ingress listen on %s: %w", a.cfg.Ingress.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: ingressReadHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() { errCh <- srv.Serve(ln) }()

	a.logger.Info().Str("addr", ln.Addr().String()).Msg("Ingress listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("ingress stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ingressShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Warn().Err(err).Msg("Ingress shutdown failed")
	}

	return ctx.Err()
}
