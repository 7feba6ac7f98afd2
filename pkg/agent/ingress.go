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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	httpx "github.com/carverauto/devicelock/pkg/http"
	"github.com/carverauto/devicelock/pkg/lockstate"
	"github.com/carverauto/devicelock/pkg/models"
)

const maxIngressBody = 16 * 1024

type smsRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

type simRequest struct {
	ICCID   string `json:"iccid"`
	Carrier string `json:"carrier,omitempty"`
}

type provisionRequest struct {
	LockToken    string `json:"lockToken"`
	UnlockToken  string `json:"unlockToken"`
	LockMessage  string `json:"lockMessage,omitempty"`
	SupportPhone string `json:"supportPhone,omitempty"`
}

type commandRequest struct {
	Command string  `json:"command"`
	Params  *string `json:"params,omitempty"`
}

// Status is the body of GET /v1/status.
type Status struct {
	DeviceID       string            `json:"deviceId"`
	Provisioned    bool              `json:"provisioned"`
	State          string            `json:"state"`
	LockState      *models.LockState `json:"lockState,omitempty"`
	PendingCommand int               `json:"pendingCommands"`
	PendingReports int               `json:"pendingReports"`
	LastSync       *time.Time        `json:"lastSync,omitempty"`
}

// Handler is the ingress router platform glue posts broadcasts to.
func (a *Agent) Handler() http.Handler {
	r := mux.NewRouter()

	r.Use(httpx.RequestLogger(a.logger))
	r.Use(httpx.APIKeyMiddlewareWithOptions(httpx.APIKeyOptions{
		APIKey:       a.cfg.Ingress.APIKey,
		ExcludePaths: []string{"/health"},
		Logger:       a.logger,
	}))

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/sms", a.handleSMS).Methods(http.MethodPost)
	v1.HandleFunc("/sim", a.handleSIM).Methods(http.MethodPost)
	v1.HandleFunc("/connectivity", a.handleConnectivity).Methods(http.MethodPost)
	v1.HandleFunc("/provision", a.handleProvision).Methods(http.MethodPost)
	v1.HandleFunc("/commands", a.handleCommand).Methods(http.MethodPost)
	v1.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/sms/audit", a.handleAudit).Methods(http.MethodGet)

	return r
}

func (a *Agent) handleSMS(w http.ResponseWriter, r *http.Request) {
	var req smsRequest
	if !decode(w, r, &req) {
		return
	}

	accepted, err := a.sms.Handle(r.Context(), req.Sender, req.Body)
	if err != nil {
		a.logger.Error().Err(err).Msg("SMS handling failed")
		http.Error(w, "failed to queue command", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

func (a *Agent) handleSIM(w http.ResponseWriter, r *http.Request) {
	var req simRequest
	if !decode(w, r, &req) {
		return
	}

	tampered, err := a.sim.Observe(r.Context(), models.SIMInfo{
		ICCID:   strings.TrimSpace(req.ICCID),
		Carrier: strings.TrimSpace(req.Carrier),
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("SIM observation failed")
		http.Error(w, "sim check failed", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"tamper": tampered})
}

func (a *Agent) handleConnectivity(w http.ResponseWriter, _ *http.Request) {
	a.outbox.Trigger()

	w.WriteHeader(http.StatusAccepted)
}

func (a *Agent) handleProvision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if !decode(w, r, &req) {
		return
	}

	if req.LockToken == "" || req.UnlockToken == "" {
		http.Error(w, "lockToken and unlockToken are required", http.StatusBadRequest)

		return
	}

	ctx := r.Context()

	err := a.machine.Provision(ctx, lockstate.Provisioning{
		Tokens:       models.OfflineTokens{LockToken: req.LockToken, UnlockToken: req.UnlockToken},
		LockMessage:  req.LockMessage,
		SupportPhone: req.SupportPhone,
	})

	switch {
	case errors.Is(err, lockstate.ErrAlreadyProvisioned):
		http.Error(w, err.Error(), http.StatusConflict)

		return
	case err != nil:
		a.logger.Error().Err(err).Msg("Provisioning failed")
		http.Error(w, "provisioning failed", http.StatusInternalServerError)

		return
	}

	// capture the SIM baseline right after enrollment
	if _, err := a.sim.Verify(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("SIM baseline capture failed")
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"provisioned": true})
}

// handleCommand queues a trusted local command. It is only served when an ingress API
// key is configured.
func (a *Agent) handleCommand(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Ingress.APIKey == "" {
		http.Error(w, "local commands require an ingress api key", http.StatusForbidden)

		return
	}

	var req commandRequest
	if !decode(w, r, &req) {
		return
	}

	cmd, err := models.ParseCommand(req.Command)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	ctx := r.Context()

	if err := a.machine.Authorize(ctx, cmd, models.SourceLocal, ""); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)

		return
	}

	entry, err := a.queue.Enqueue(ctx, cmd, req.Params, models.SourceLocal)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to queue local command")
		http.Error(w, "failed to queue command", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusAccepted, entry)
}

func (a *Agent) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := Status{DeviceID: a.deviceID, State: statusUnprovisioned}

	provisioned, err := a.machine.Provisioned(ctx)
	if err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)

		return
	}

	resp.Provisioned = provisioned

	if state, found, err := a.machine.Current(ctx); err == nil && found {
		resp.LockState = &state
		resp.State = string(state.State())
	}

	if n, err := a.queue.Pending(ctx); err == nil {
		resp.PendingCommand = n
	}

	if pending, err := a.outbox.Pending(ctx); err == nil {
		resp.PendingReports = len(pending)
	}

	if lastSync, err := a.outbox.LastSync(ctx); err == nil {
		resp.LastSync = lastSync
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *Agent) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := a.sms.Audit(r.Context())
	if err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)

		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxIngressBody)).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
