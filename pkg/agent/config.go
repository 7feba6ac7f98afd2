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
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/carverauto/devicelock/pkg/channel"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

const (
	EnforcerExec = "exec"
	EnforcerLog  = "log"

	DefaultIngressAddr       = "127.0.0.1:8765"
	defaultRetryInterval     = 5 * time.Minute
	defaultPruneInterval     = time.Hour
	defaultCommandTimeout    = 15 * time.Second
	defaultRequestTimeout    = 10 * time.Second
	defaultSafeModeEnv       = "DEVICELOCK_SAFE_MODE"
	defaultPushRestartDelay  = 5 * time.Second
	defaultPushRestartMaxGap = 5 * time.Minute
)

var (
	errBackendURLRequired = errors.New("backend.url is required")
	errUnknownEnforcer    = errors.New("unknown enforcer mode")
	errHelperRequired     = errors.New("enforcer.helper is required in exec mode")
	errIngressNotLoopback = errors.New("ingress.listen_addr must be a loopback address")
)

// BackendConfig points the agent at its single backend.
type BackendConfig struct {
	URL              string          `json:"url"`
	APIKey           string          `json:"api_key,omitempty"`
	RegistrationPath string          `json:"registration_path,omitempty"`
	EventPath        string          `json:"event_path,omitempty"`
	HeartbeatPath    string          `json:"heartbeat_path,omitempty"`
	Timeout          models.Duration `json:"timeout,omitempty"`
}

// EnforcerConfig selects the PolicyEnforcer. Mode "exec" shells out to Helper, mode
// "log" only records what would be enforced.
type EnforcerConfig struct {
	Mode    string          `json:"mode,omitempty"`
	Helper  string          `json:"helper,omitempty"`
	Timeout models.Duration `json:"timeout,omitempty"`
}

type MQTTConfig struct {
	Broker   string `json:"broker,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Topic    string `json:"topic,omitempty"`

	TLS channel.TLSConfig `json:"tls"`
}

type NATSConfig struct {
	URL       string `json:"url,omitempty"`
	Subject   string `json:"subject,omitempty"`
	CredsFile string `json:"creds_file,omitempty"`

	TLS channel.TLSConfig `json:"tls"`
}

// IngressConfig is the loopback HTTP endpoint platform glue posts broadcasts to.
type IngressConfig struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
	Disabled   bool   `json:"disabled,omitempty"`
}

// Config is the agent configuration document.
type Config struct {
	DeviceID   string `json:"device_id,omitempty"`
	IMEI       string `json:"imei,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`

	Store    kv.Config      `json:"store"`
	Backend  BackendConfig  `json:"backend"`
	Enforcer EnforcerConfig `json:"enforcer"`
	MQTT     MQTTConfig     `json:"mqtt"`
	NATS     NATSConfig     `json:"nats"`
	Ingress  IngressConfig  `json:"ingress"`
	Logging  logger.Config  `json:"logging"`

	HeartbeatInterval models.Duration `json:"heartbeat_interval,omitempty"`
	MaxBackoff        models.Duration `json:"max_backoff,omitempty"`
	RetryInterval     models.Duration `json:"retry_interval,omitempty"`
	PruneInterval     models.Duration `json:"prune_interval,omitempty"`
	QueueRetention    models.Duration `json:"queue_retention,omitempty"`

	// SecretsKey is a base64 AES key sealing the offline tokens at rest.
	SecretsKey string `json:"secrets_key,omitempty"`

	SIMLockEnabled   bool     `json:"sim_lock_enabled"`
	AlarmOnSIMChange bool     `json:"alarm_on_sim_change"`
	KioskPackages    []string `json:"kiosk_packages,omitempty"`

	// PlatformProbes enables getprop/settings based Safe Mode and device property reads.
	PlatformProbes   bool   `json:"platform_probes"`
	SafeModeEnv      string `json:"safe_mode_env,omitempty"`
	SIMReaderCommand string `json:"sim_reader_command,omitempty"`
}

// Validate fills defaults and checks the document.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return errBackendURLRequired
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	switch c.Enforcer.Mode {
	case "":
		c.Enforcer.Mode = EnforcerLog
		if c.Enforcer.Helper != "" {
			c.Enforcer.Mode = EnforcerExec
		}
	case EnforcerExec:
		if c.Enforcer.Helper == "" {
			return errHelperRequired
		}
	case EnforcerLog:
	default:
		return fmt.Errorf("%w: %q", errUnknownEnforcer, c.Enforcer.Mode)
	}

	if c.Ingress.ListenAddr == "" {
		c.Ingress.ListenAddr = DefaultIngressAddr
	}

	if !c.Ingress.Disabled {
		if err := requireLoopback(c.Ingress.ListenAddr); err != nil {
			return err
		}
	}

	if c.SafeModeEnv == "" {
		c.SafeModeEnv = defaultSafeModeEnv
	}

	c.RetryInterval = models.Duration(c.RetryInterval.Or(defaultRetryInterval))
	c.PruneInterval = models.Duration(c.PruneInterval.Or(defaultPruneInterval))
	c.Enforcer.Timeout = models.Duration(c.Enforcer.Timeout.Or(defaultCommandTimeout))
	c.Backend.Timeout = models.Duration(c.Backend.Timeout.Or(defaultRequestTimeout))

	return nil
}

func requireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("ingress.listen_addr: %w", err)
	}

	if host == "localhost" {
		return nil
	}

	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %s", errIngressNotLoopback, addr)
	}

	return nil
}
