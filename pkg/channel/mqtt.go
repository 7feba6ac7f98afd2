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
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/carverauto/devicelock/pkg/logger"
)

const (
	mqttQoS               = 1
	mqttDisconnectQuiesce = 250
	defaultMQTTTopic      = "devices/{deviceId}/commands"
)

var errBrokerRequired = errors.New("mqtt broker is required")

// JSONDispatcher consumes raw backend command messages.
type JSONDispatcher interface {
	DispatchJSON(ctx context.Context, data []byte) error
}

// MQTTConfig configures the MQTT push channel.
type MQTTConfig struct {
	Broker               string
	ClientID             string
	Username             string
	Password             string
	Topic                string // may contain {deviceId}
	DeviceID             string
	KeepAlive            time.Duration
	ConnectTimeout       time.Duration
	MaxReconnectInterval time.Duration
	TLS                  TLSConfig
}

// MQTTSubscriber receives backend commands pushed over MQTT.
type MQTTSubscriber struct {
	cfg        MQTTConfig
	topic      string
	tls        *tls.Config
	dispatcher JSONDispatcher
	logger     logger.Logger
}

func NewMQTTSubscriber(cfg MQTTConfig, dispatcher JSONDispatcher, log logger.Logger) (*MQTTSubscriber, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errBrokerRequired
	}

	if cfg.Topic == "" {
		cfg.Topic = defaultMQTTTopic
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "devicelock-" + cfg.DeviceID
	}

	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 60 * time.Second
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	if cfg.MaxReconnectInterval <= 0 {
		cfg.MaxReconnectInterval = 5 * time.Minute
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("mqtt tls: %w", err)
	}

	return &MQTTSubscriber{
		cfg:        cfg,
		topic:      strings.ReplaceAll(cfg.Topic, "{deviceId}", cfg.DeviceID),
		tls:        tlsCfg,
		dispatcher: dispatcher,
		logger:     log,
	}, nil
}

// Topic returns the resolved subscription topic.
func (s *MQTTSubscriber) Topic() string {
	return s.topic
}

// Run connects, subscribes and blocks until ctx is done. The subscription is renewed on
// every reconnect.
func (s *MQTTSubscriber) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Password)
	opts.SetCleanSession(false)
	opts.SetKeepAlive(s.cfg.KeepAlive)
	opts.SetConnectTimeout(s.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(s.cfg.MaxReconnectInterval)

	if s.tls != nil {
		opts.SetTLSConfig(s.tls)
	}

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.logger.Info().Str("broker", s.cfg.Broker).Msg("MQTT connected")

		token := c.Subscribe(s.topic, mqttQoS, func(_ mqtt.Client, msg mqtt.Message) {
			s.handle(ctx, msg.Topic(), msg.Payload())
		})

		go func() {
			token.Wait()

			if err := token.Error(); err != nil {
				s.logger.Error().Err(err).Str("topic", s.topic).Msg("MQTT subscribe failed")

				return
			}

			s.logger.Info().Str("topic", s.topic).Msg("Subscribed to command topic")
		}()
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()

	select {
	case <-ctx.Done():
		client.Disconnect(mqttDisconnectQuiesce)

		return ctx.Err()
	case <-token.Done():
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	<-ctx.Done()

	s.logger.Info().Msg("Disconnecting from MQTT broker")
	client.Disconnect(mqttDisconnectQuiesce)

	return ctx.Err()
}

func (s *MQTTSubscriber) handle(ctx context.Context, topic string, payload []byte) {
	if err := s.dispatcher.DispatchJSON(ctx, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to dispatch MQTT command")
	}
}
