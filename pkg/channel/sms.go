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
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

const maxAuditEntries = 50

// smsCommands are the recognized command words. Anything else is not for us.
var smsCommands = map[string]models.Command{
	"LOCK":       models.CommandLock,
	"UNLOCK":     models.CommandUnlock,
	"ALARM":      models.CommandAlarm,
	"EMI_LOCK":   models.CommandLock,
	"EMI_UNLOCK": models.CommandUnlock,
	"EMI_ALARM":  models.CommandAlarm,
	// parsed so it can be refused and audited
	"WIPE":     models.CommandWipe,
	"EMI_WIPE": models.CommandWipe,
}

// SMSCommand is a parsed SMS body.
type SMSCommand struct {
	Command models.Command
	Token   string
}

// ParseSMS accepts "COMMAND:TOKEN" and the legacy "COMMAND TOKEN". The command word is
// case-insensitive; the token is kept as sent. ok is false for every other body.
func ParseSMS(body string) (cmd SMSCommand, ok bool) {
	msg := strings.TrimSpace(body)
	if msg == "" {
		return SMSCommand{}, false
	}

	word, token, found := strings.Cut(msg, ":")
	if !found {
		fields := strings.Fields(msg)
		if len(fields) != 2 {
			return SMSCommand{}, false
		}

		word, token = fields[0], fields[1]
	}

	command, known := smsCommands[strings.ToUpper(strings.TrimSpace(word))]
	if !known {
		return SMSCommand{}, false
	}

	return SMSCommand{Command: command, Token: strings.TrimSpace(token)}, true
}

// AuditEntry records one recognized SMS command. Tokens are never stored.
type AuditEntry struct {
	At       time.Time      `json:"at"`
	Sender   string         `json:"sender"`
	Command  models.Command `json:"command"`
	Accepted bool           `json:"accepted"`
	Reason   string         `json:"reason,omitempty"`
}

// SMSAdapter authenticates SMS commands and queues the accepted ones.
type SMSAdapter struct {
	auth   Authorizer
	queue  Enqueuer
	store  kv.Store
	clock  clock.Clock
	logger logger.Logger

	mu sync.Mutex
}

func NewSMSAdapter(auth Authorizer, queue Enqueuer, store kv.Store, clk clock.Clock, log logger.Logger) *SMSAdapter {
	if clk == nil {
		clk = clock.Real()
	}

	return &SMSAdapter{
		auth:   auth,
		queue:  queue,
		store:  store,
		clock:  clk,
		logger: log,
	}
}

// Handle processes one inbound SMS. It reports whether a command was queued. Rejections
// are not errors; only a queue write failure is.
func (a *SMSAdapter) Handle(ctx context.Context, sender, body string) (bool, error) {
	parsed, ok := ParseSMS(body)
	if !ok {
		return false, nil
	}

	a.logger.Info().Str("command", string(parsed.Command)).Msg("Processing SMS command")

	if err := a.auth.Authorize(ctx, parsed.Command, models.SourceSMS, parsed.Token); err != nil {
		a.logger.Warn().Err(err).Str("command", string(parsed.Command)).Msg("SMS command rejected")
		a.audit(ctx, sender, parsed.Command, false, err)

		return false, nil
	}

	if _, err := a.queue.Enqueue(ctx, parsed.Command, nil, models.SourceSMS); err != nil {
		a.audit(ctx, sender, parsed.Command, false, err)

		return false, fmt.Errorf("enqueue sms command: %w", err)
	}

	a.audit(ctx, sender, parsed.Command, true, nil)

	return true, nil
}

func (a *SMSAdapter) audit(ctx context.Context, sender string, cmd models.Command, accepted bool, reason error) {
	entry := AuditEntry{
		At:       a.clock.Now().UTC(),
		Sender:   sender,
		Command:  cmd,
		Accepted: accepted,
	}

	if reason != nil {
		entry.Reason = reason.Error()
	}

	if err := a.appendAudit(ctx, entry); err != nil {
		a.logger.Error().Err(err).Msg("Failed to write SMS audit log")
	}
}

func (a *SMSAdapter) appendAudit(ctx context.Context, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []AuditEntry

	if _, err := kv.GetJSON(ctx, a.store, kv.KeySMSAudit, &entries); err != nil {
		return err
	}

	entries = append([]AuditEntry{entry}, entries...)
	if len(entries) > maxAuditEntries {
		entries = entries[:maxAuditEntries]
	}

	return kv.PutJSON(ctx, a.store, kv.KeySMSAudit, entries)
}

// Audit returns the log, newest first.
func (a *SMSAdapter) Audit(ctx context.Context) ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []AuditEntry

	_, err := kv.GetJSON(ctx, a.store, kv.KeySMSAudit, &entries)

	return entries, err
}
