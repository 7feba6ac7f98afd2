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

// Package outbox is the durable store-and-forward queue of reports bound for the backend.
// Nothing is removed until the backend acknowledges it with a 2xx response.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

const defaultSendTimeout = 10 * time.Second

// record is the persisted form of the outbox.
type record struct {
	Registration *models.PendingReport `json:"registration,omitempty"`
	Events       []models.PendingReport `json:"events"`
	LastSync     *time.Time             `json:"last_sync,omitempty"`
}

func (r *record) reports() []models.PendingReport {
	out := make([]models.PendingReport, 0, len(r.Events)+1)
	if r.Registration != nil {
		out = append(out, *r.Registration)
	}

	return append(out, r.Events...)
}

// Result summarizes one delivery pass.
type Result struct {
	Delivered int
	Failed    int
}

// Outbox persists reports and forwards them through a Transport.
type Outbox struct {
	store       kv.Store
	transport   Transport
	clock       clock.Clock
	logger      logger.Logger
	sendTimeout time.Duration

	mu        sync.Mutex // guards the persisted record
	deliverMu sync.Mutex // one delivery pass at a time
	kick      chan struct{}
}

// New returns an outbox. sendTimeout bounds each individual send.
func New(store kv.Store, transport Transport, clk clock.Clock, log logger.Logger, sendTimeout time.Duration) *Outbox {
	if clk == nil {
		clk = clock.Real()
	}

	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	return &Outbox{
		store:       store,
		transport:   transport,
		clock:       clk,
		logger:      log,
		sendTimeout: sendTimeout,
		kick:        make(chan struct{}, 1),
	}
}

// SubmitRegistration replaces the pending registration payload and schedules delivery.
func (o *Outbox) SubmitRegistration(ctx context.Context, payload interface{}) error {
	report, err := o.newReport(models.ReportRegistration, payload)
	if err != nil {
		return err
	}

	err = o.update(ctx, func(r *record) {
		r.Registration = &report
	})
	if err != nil {
		return err
	}

	o.logger.Debug().Str("id", report.ID).Msg("Registration queued")
	o.Trigger()

	return nil
}

// SubmitSecurityEvent appends a tamper report and schedules delivery.
func (o *Outbox) SubmitSecurityEvent(ctx context.Context, event models.SecurityEvent) error {
	report, err := o.newReport(models.ReportSecurityEvent, event)
	if err != nil {
		return err
	}

	err = o.update(ctx, func(r *record) {
		r.Events = append(r.Events, report)
	})
	if err != nil {
		return err
	}

	o.logger.Info().
		Str("id", report.ID).
		Str("event", string(event.Event)).
		Msg("Security event queued")
	o.Trigger()

	return nil
}

func (o *Outbox) newReport(kind models.ReportKind, payload interface{}) (models.PendingReport, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.PendingReport{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	return models.PendingReport{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   data,
		CreatedAt: o.clock.Now().UTC(),
	}, nil
}

// Trigger requests a delivery pass without blocking. Used on submit and when
// connectivity returns.
func (o *Outbox) Trigger() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// Deliver attempts every pending report once.
func (o *Outbox) Deliver(ctx context.Context) (Result, error) {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	var res Result

	o.mu.Lock()
	snapshot, err := o.load(ctx)
	o.mu.Unlock()

	if err != nil {
		return res, err
	}

	for _, report := range snapshot.reports() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		sendErr := o.send(ctx, report)
		if sendErr != nil {
			res.Failed++

			o.logger.Warn().
				Err(sendErr).
				Str("id", report.ID).
				Str("kind", string(report.Kind)).
				Msg("Report delivery failed, will retry")
		} else {
			res.Delivered++
		}

		if err := o.settle(ctx, report.ID, sendErr); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (o *Outbox) send(ctx context.Context, report models.PendingReport) error {
	sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	return o.transport.Send(sendCtx, report)
}

// settle removes an acknowledged report or records the failed attempt. Reports are matched
// by id so a registration replaced during the send is left alone.
func (o *Outbox) settle(ctx context.Context, id string, sendErr error) error {
	now := o.clock.Now().UTC()

	return o.update(ctx, func(r *record) {
		if sendErr == nil {
			r.LastSync = &now
		}

		if r.Registration != nil && r.Registration.ID == id {
			if sendErr == nil {
				r.Registration = nil
			} else {
				markAttempt(r.Registration, now, sendErr)
			}

			return
		}

		for i := range r.Events {
			if r.Events[i].ID != id {
				continue
			}

			if sendErr == nil {
				r.Events = append(r.Events[:i], r.Events[i+1:]...)
			} else {
				markAttempt(&r.Events[i], now, sendErr)
			}

			return
		}
	})
}

func markAttempt(report *models.PendingReport, now time.Time, err error) {
	report.Attempts++
	report.LastAttemptAt = &now
	report.LastError = err.Error()
}

// Run delivers whenever Trigger fires and every interval until ctx is done.
func (o *Outbox) Run(ctx context.Context, interval time.Duration) error {
	ticker := o.clock.Ticker(interval)
	defer ticker.Stop()

	o.logger.Info().Dur("interval", interval).Msg("Starting outbox delivery loop")

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("Outbox delivery loop stopping due to context cancellation")

			return ctx.Err()
		case <-o.kick:
		case <-ticker.Chan():
		}

		if err := o.deliverIfPending(ctx); err != nil && ctx.Err() == nil {
			o.logger.Error().Err(err).Msg("Outbox delivery pass failed")
		}
	}
}

func (o *Outbox) deliverIfPending(ctx context.Context) error {
	pending, err := o.Pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		return nil
	}

	res, err := o.Deliver(ctx)
	if res.Delivered > 0 || res.Failed > 0 {
		o.logger.Debug().
			Int("delivered", res.Delivered).
			Int("failed", res.Failed).
			Msg("Outbox delivery pass complete")
	}

	return err
}

// Pending returns the reports still awaiting acknowledgment, registration first.
func (o *Outbox) Pending(ctx context.Context) ([]models.PendingReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, err := o.load(ctx)
	if err != nil {
		return nil, err
	}

	return r.reports(), nil
}

// LastSync returns the time of the last acknowledged delivery, or nil.
func (o *Outbox) LastSync(ctx context.Context) (*time.Time, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, err := o.load(ctx)
	if err != nil {
		return nil, err
	}

	return r.LastSync, nil
}

func (o *Outbox) update(ctx context.Context, mutate func(*record)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, err := o.load(ctx)
	if err != nil {
		return err
	}

	mutate(r)

	if err := kv.PutJSON(ctx, o.store, kv.KeyReportOutbox, r); err != nil {
		return fmt.Errorf("failed to persist outbox: %w", err)
	}

	return nil
}

func (o *Outbox) load(ctx context.Context) (*record, error) {
	r := &record{}

	if _, err := kv.GetJSON(ctx, o.store, kv.KeyReportOutbox, r); err != nil {
		return nil, fmt.Errorf("failed to load outbox: %w", err)
	}

	return r, nil
}
