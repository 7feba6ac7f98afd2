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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/devicelock/pkg/logger"
)

const defaultNATSSubject = "devices.{deviceId}.commands"

var errNatsURLRequired = errors.New("nats url is required")

// NATSConfig configures the NATS push channel.
type NATSConfig struct {
	URL       string
	Subject   string // may contain {deviceId}
	DeviceID  string
	CredsFile string
	TLS       TLSConfig
}

// NATSSubscriber receives backend commands published on a NATS subject. Request/reply
// publishers get "ok" or the error text back.
type NATSSubscriber struct {
	cfg        NATSConfig
	subject    string
	tls        *tls.Config
	dispatcher JSONDispatcher
	logger     logger.Logger
}

func NewNATSSubscriber(cfg NATSConfig, dispatcher JSONDispatcher, log logger.Logger) (*NATSSubscriber, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errNatsURLRequired
	}

	if cfg.Subject == "" {
		cfg.Subject = defaultNATSSubject
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("nats tls: %w", err)
	}

	return &NATSSubscriber{
		cfg:        cfg,
		subject:    strings.ReplaceAll(cfg.Subject, "{deviceId}", cfg.DeviceID),
		tls:        tlsCfg,
		dispatcher: dispatcher,
		logger:     log,
	}, nil
}

// Subject returns the resolved subject.
func (s *NATSSubscriber) Subject() string {
	return s.subject
}

// Run subscribes and blocks until ctx is done.
func (s *NATSSubscriber) Run(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("devicelock-" + s.cfg.DeviceID),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if s.cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(s.cfg.CredsFile))
	}

	if s.tls != nil {
		opts = append(opts, nats.Secure(s.tls))
	}

	nc, err := nats.Connect(s.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(s.subject, func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}

	s.logger.Info().Str("subject", s.subject).Msg("Subscribed to command subject")

	<-ctx.Done()

	_ = sub.Unsubscribe()

	return ctx.Err()
}

func (s *NATSSubscriber) handle(ctx context.Context, msg *nats.Msg) {
	err := s.dispatcher.DispatchJSON(ctx, msg.Data)
	if err != nil {
		s.logger.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to dispatch NATS command")
	}

	if msg.Reply == "" {
		return
	}

	reply := "ok"
	if err != nil {
		reply = err.Error()
	}

	if rerr := msg.Respond([]byte(reply)); rerr != nil {
		s.logger.Warn().Err(rerr).Msg("Failed to reply to NATS command")
	}
}
