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

package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/logger"
)

const (
	defaultHeartbeatPath     = "/api/customers/heartbeat"
	defaultHeartbeatInterval = 30 * time.Second
	defaultMaxBackoff        = 5 * time.Minute
	defaultPollTimeout       = 10 * time.Second
	maxResponseBody          = 64 * 1024
)

var errBaseURLRequired = errors.New("backend base url is required")

// Dispatcher consumes backend commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd BackendCommand) error
}

// StatusFunc reports the device status string sent with each heartbeat.
type StatusFunc func(ctx context.Context) string

// HeartbeatConfig controls the poller.
type HeartbeatConfig struct {
	BaseURL    string
	Path       string
	DeviceID   string
	CustomerID string
	APIKey     string
	Interval   time.Duration
	MaxBackoff time.Duration
	Timeout    time.Duration
	HTTP       *http.Client
	Clock      clock.Clock
}

type heartbeatRequest struct {
	DeviceID     string `json:"deviceId"`
	CustomerID   string `json:"customerId,omitempty"`
	Status       string `json:"status"`
	AppInstalled bool   `json:"appInstalled"`
	LastSeen     int64  `json:"lastSeen"`
}

type heartbeatResponse struct {
	OK      bool            `json:"ok"`
	Status  string          `json:"status"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// HeartbeatPoller posts a heartbeat on an interval and dispatches any command the backend
// returns. Failures back off exponentially up to MaxBackoff.
type HeartbeatPoller struct {
	endpoint   string
	cfg        HeartbeatConfig
	client     *http.Client
	clock      clock.Clock
	dispatcher Dispatcher
	status     StatusFunc
	logger     logger.Logger

	mu          sync.Mutex
	delay       time.Duration
	online      bool
	onConnected func()
}

func NewHeartbeatPoller(
	cfg HeartbeatConfig, dispatcher Dispatcher, status StatusFunc, log logger.Logger) (*HeartbeatPoller, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errBaseURLRequired
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	if cfg.Path == "" {
		cfg.Path = defaultHeartbeatPath
	}

	if cfg.Interval <= 0 {
		cfg.Interval = defaultHeartbeatInterval
	}

	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = max(defaultMaxBackoff, cfg.Interval)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPollTimeout
	}

	client := cfg.HTTP
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	parsed.Path = path.Join(parsed.Path, cfg.Path)

	return &HeartbeatPoller{
		endpoint:   parsed.String(),
		cfg:        cfg,
		client:     client,
		clock:      clk,
		dispatcher: dispatcher,
		status:     status,
		logger:     log,
		delay:      cfg.Interval,
	}, nil
}

// OnConnected registers fn to run when a heartbeat succeeds after a failure (or for the
// first time).
func (p *HeartbeatPoller) OnConnected(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onConnected = fn
}

// Poll sends one heartbeat and dispatches the returned command.
func (p *HeartbeatPoller) Poll(ctx context.Context) error {
	body := heartbeatRequest{
		DeviceID:     p.cfg.DeviceID,
		CustomerID:   p.cfg.CustomerID,
		Status:       p.status(ctx),
		AppInstalled: true,
		LastSeen:     p.clock.Now().UnixMilli(),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal heartbeat: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create heartbeat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if p.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("heartbeat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

		return fmt.Errorf("heartbeat response status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded heartbeatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode heartbeat response: %w", err)
	}

	if decoded.Command == "" {
		return nil
	}

	p.logger.Info().Str("command", decoded.Command).Msg("Backend returned command")

	// a bad command is logged, not treated as a connectivity failure
	if err := p.dispatcher.Dispatch(ctx, BackendCommand{Command: decoded.Command, Params: decoded.Params}); err != nil {
		p.logger.Error().Err(err).Str("command", decoded.Command).Msg("Failed to dispatch backend command")
	}

	return nil
}

// Run polls until ctx is done.
func (p *HeartbeatPoller) Run(ctx context.Context) error {
	p.logger.Info().Str("endpoint", p.endpoint).Dur("interval", p.cfg.Interval).Msg("Starting heartbeat poller")

	for {
		err := p.Poll(ctx)
		if ctx.Err() != nil {
			p.logger.Info().Msg("Heartbeat poller stopping due to context cancellation")

			return ctx.Err()
		}

		delay := p.record(err)

		timer := p.clock.Timer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info().Msg("Heartbeat poller stopping due to context cancellation")

			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

// record updates the backoff state after a poll and returns the wait before the next one.
func (p *HeartbeatPoller) record(err error) time.Duration {
	p.mu.Lock()

	if err != nil {
		wasOnline := p.online
		p.online = false
		delay := p.delay
		p.delay = min(p.delay*2, p.cfg.MaxBackoff)
		p.mu.Unlock()

		if wasOnline {
			p.logger.Warn().Err(err).Msg("Backend unreachable")
		} else {
			p.logger.Debug().Err(err).Dur("retry_in", delay).Msg("Heartbeat failed")
		}

		return delay
	}

	reconnected := !p.online
	p.online = true
	p.delay = p.cfg.Interval
	fn := p.onConnected
	p.mu.Unlock()

	if reconnected && fn != nil {
		fn()
	}

	return p.cfg.Interval
}

// Delay returns the wait that will follow the next failure.
func (p *HeartbeatPoller) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.delay
}
