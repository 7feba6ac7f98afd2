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

package outbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

const (
	defaultRegistrationPath = "/api/devices/register"
	defaultEventPath        = "/api/devices/{deviceId}/security-event"
	defaultHTTPTimeout      = 10 * time.Second
	maxErrorBody            = 2048
)

var (
	errBaseURLRequired = errors.New("backend base url is required")
	errUnknownKind     = errors.New("unknown report kind")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend response status %d: %s", e.StatusCode, e.Body)
}

// Transport sends one report to the backend. A nil error means the backend acknowledged it.
type Transport interface {
	Send(ctx context.Context, report models.PendingReport) error
}

// HTTPTransportConfig controls how reports are posted.
type HTTPTransportConfig struct {
	BaseURL          string
	DeviceID         string
	APIKey           string
	RegistrationPath string
	EventPath        string // may contain {deviceId}
	Timeout          time.Duration
	Logger           logger.Logger
	HTTP             *http.Client
}

// HTTPTransport posts reports as JSON.
type HTTPTransport struct {
	baseURL          *url.URL
	deviceID         string
	apiKey           string
	registrationPath string
	eventPath        string
	client           *http.Client
	logger           logger.Logger
}

// NewHTTPTransport constructs a transport for the configured backend.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errBaseURLRequired
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := cfg.HTTP
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	regPath := cfg.RegistrationPath
	if strings.TrimSpace(regPath) == "" {
		regPath = defaultRegistrationPath
	}

	eventPath := cfg.EventPath
	if strings.TrimSpace(eventPath) == "" {
		eventPath = defaultEventPath
	}

	return &HTTPTransport{
		baseURL:          parsed,
		deviceID:         cfg.DeviceID,
		apiKey:           cfg.APIKey,
		registrationPath: regPath,
		eventPath:        eventPath,
		client:           client,
		logger:           cfg.Logger,
	}, nil
}

func (t *HTTPTransport) endpoint(kind models.ReportKind) (string, error) {
	var p string

	switch kind {
	case models.ReportRegistration:
		p = t.registrationPath
	case models.ReportSecurityEvent:
		p = strings.ReplaceAll(t.eventPath, "{deviceId}", url.PathEscape(t.deviceID))
	default:
		return "", fmt.Errorf("%w: %s", errUnknownKind, kind)
	}

	endpoint := *t.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)

	return endpoint.String(), nil
}

// Send posts the report payload and maps non-2xx answers to *StatusError.
func (t *HTTPTransport) Send(ctx context.Context, report models.PendingReport) error {
	endpoint, err := t.endpoint(report.Kind)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(report.Payload))
	if err != nil {
		return fmt.Errorf("failed to create report request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if t.apiKey != "" {
		req.Header.Set("X-API-Key", t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return nil
}

var _ Transport = (*HTTPTransport)(nil)
