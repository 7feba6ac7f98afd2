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

// Package cli implements devicelockctl, the operator tool that talks to the
// agent's loopback ingress.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/devicelock/pkg/agent"
	"github.com/carverauto/devicelock/pkg/channel"
	"github.com/carverauto/devicelock/pkg/version"
)

const (
	envIngressAddr   = "DEVICELOCK_INGRESS_ADDR"
	envIngressAPIKey = "DEVICELOCK_INGRESS_API_KEY"
	defaultAddr      = agent.DefaultIngressAddr
	requestTimeout   = 10 * time.Second
	maxResponseBody  = 1 << 20
)

type subcommandFunc func(args []string, cfg *CmdConfig) error

func (f subcommandFunc) Parse(args []string, cfg *CmdConfig) error { return f(args, cfg) }

func subcommands() map[string]SubcommandHandler {
	return map[string]SubcommandHandler{
		"status":       subcommandFunc(parseNoFlags("status")),
		"audit":        subcommandFunc(parseNoFlags("audit")),
		"connectivity": subcommandFunc(parseNoFlags("connectivity")),
		"version":      subcommandFunc(parseNoFlags("version")),
		"sms":          subcommandFunc(parseSMS),
		"sim":          subcommandFunc(parseSIM),
		"provision":    subcommandFunc(parseProvision),
		"command":      subcommandFunc(parseCommand),
	}
}

// ParseFlags parses the global flags, then the subcommand and its flags.
func ParseFlags(args []string) (*CmdConfig, error) {
	cfg := &CmdConfig{
		Addr:   envOr(envIngressAddr, defaultAddr),
		APIKey: os.Getenv(envIngressAPIKey),
	}

	fs := flag.NewFlagSet("devicelockctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&cfg.Help, "help", false, "show help message")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "agent ingress address (host:port)")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "agent ingress API key")
	fs.BoolVar(&cfg.JSON, "json", false, "print raw JSON responses")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	rest := fs.Args()
	if cfg.Help || len(rest) == 0 {
		cfg.Help = true

		return cfg, nil
	}

	cfg.SubCmd = rest[0]

	handler, ok := subcommands()[cfg.SubCmd]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownSubcommand, cfg.SubCmd)
	}

	if err := handler.Parse(rest[1:], cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func parseNoFlags(name string) func([]string, *CmdConfig) error {
	return func(args []string, _ *CmdConfig) error {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(io.Discard)

		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("parsing %s flags: %w", name, err)
		}

		return nil
	}
}

func parseSMS(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("sms", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Sender, "sender", "", "originating phone number")
	fs.StringVar(&cfg.Body, "body", "", "message body, e.g. LOCK:<token>")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing sms flags: %w", err)
	}

	if cfg.Body == "" {
		return fmt.Errorf("%w: -body", errMissingArgument)
	}

	return nil
}

func parseSIM(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.ICCID, "iccid", "", "ICCID of the inserted SIM")
	fs.StringVar(&cfg.Carrier, "carrier", "", "carrier name")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing sim flags: %w", err)
	}

	if cfg.ICCID == "" {
		return fmt.Errorf("%w: -iccid", errMissingArgument)
	}

	return nil
}

func parseProvision(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.LockToken, "lock-token", "", "SMS lock token")
	fs.StringVar(&cfg.UnlockToken, "unlock-token", "", "SMS unlock token")
	fs.StringVar(&cfg.LockMessage, "lock-message", "", "message shown on the lock screen")
	fs.StringVar(&cfg.SupportPhone, "support-phone", "", "support number shown on the lock screen")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing provision flags: %w", err)
	}

	if cfg.LockToken == "" || cfg.UnlockToken == "" {
		return fmt.Errorf("%w: -lock-token and -unlock-token", errMissingArgument)
	}

	return nil
}

func parseCommand(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("command", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Params, "params", "", "command parameters")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing command flags: %w", err)
	}

	if fs.NArg() == 0 {
		return fmt.Errorf("%w: command name", errMissingArgument)
	}

	cfg.Command = strings.ToUpper(fs.Arg(0))

	return nil
}

// Run executes the parsed subcommand and writes its output to out.
func Run(ctx context.Context, cfg *CmdConfig, out io.Writer) error {
	if cfg.Help {
		ShowHelp(out)

		return nil
	}

	c := newClient(cfg)
	st := newLogStyles()

	switch cfg.SubCmd {
	case "version":
		fmt.Fprintln(out, version.GetFullVersion())

		return nil
	case "status":
		var status agent.Status
		if err := c.do(ctx, http.MethodGet, "/v1/status", nil, &status); err != nil {
			return err
		}

		if cfg.JSON {
			return writeJSON(out, status)
		}

		fmt.Fprint(out, renderStatus(st, &status))

		return nil
	case "audit":
		var entries []channel.AuditEntry
		if err := c.do(ctx, http.MethodGet, "/v1/sms/audit", nil, &entries); err != nil {
			return err
		}

		if cfg.JSON {
			return writeJSON(out, entries)
		}

		fmt.Fprint(out, renderAudit(st, entries))

		return nil
	case "sms":
		var resp struct {
			Accepted bool `json:"accepted"`
		}

		body := map[string]string{"sender": cfg.Sender, "body": cfg.Body}
		if err := c.do(ctx, http.MethodPost, "/v1/sms", body, &resp); err != nil {
			return err
		}

		if resp.Accepted {
			fmt.Fprintln(out, st.success.Render("accepted"))
		} else {
			fmt.Fprintln(out, st.warning.Render("rejected"))
		}

		return nil
	case "sim":
		var resp struct {
			Tamper bool `json:"tamper"`
		}

		body := map[string]string{"iccid": cfg.ICCID, "carrier": cfg.Carrier}
		if err := c.do(ctx, http.MethodPost, "/v1/sim", body, &resp); err != nil {
			return err
		}

		if resp.Tamper {
			fmt.Fprintln(out, st.error.Render("SIM change detected, device locked"))
		} else {
			fmt.Fprintln(out, st.success.Render("SIM verified"))
		}

		return nil
	case "connectivity":
		if err := c.do(ctx, http.MethodPost, "/v1/connectivity", nil, nil); err != nil {
			return err
		}

		fmt.Fprintln(out, st.success.Render("sync triggered"))

		return nil
	case "provision":
		body := map[string]string{
			"lockToken":    cfg.LockToken,
			"unlockToken":  cfg.UnlockToken,
			"lockMessage":  cfg.LockMessage,
			"supportPhone": cfg.SupportPhone,
		}
		if err := c.do(ctx, http.MethodPost, "/v1/provision", body, nil); err != nil {
			return err
		}

		fmt.Fprintln(out, st.success.Render("provisioned"))

		return nil
	case "command":
		body := map[string]any{"command": cfg.Command}
		if cfg.Params != "" {
			body["params"] = cfg.Params
		}

		if err := c.do(ctx, http.MethodPost, "/v1/commands", body, nil); err != nil {
			return err
		}

		fmt.Fprintln(out, st.success.Render(cfg.Command+" queued"))

		return nil
	}

	return fmt.Errorf("%w: %s", errUnknownSubcommand, cfg.SubCmd)
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newClient(cfg *CmdConfig) *client {
	base := cfg.Addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting agent at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %d %s",
			errIngressStatus, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func renderStatus(st logStyles, s *agent.Status) string {
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, st.label.Render(label), st.value.Render(value)))
		b.WriteString("\n")
	}

	row("Device", s.DeviceID)

	state := st.success.Render(s.State)
	switch {
	case !s.Provisioned:
		state = st.warning.Render("unprovisioned")
	case s.LockState != nil && s.LockState.Locked:
		state = st.error.Render(s.State)
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, st.label.Render("State"), state))
	b.WriteString("\n")

	if s.LockState != nil {
		row("Lock reason", string(s.LockState.LockReason))
		row("Kiosk", fmt.Sprintf("%t", s.LockState.KioskActive))

		if s.LockState.LockMessage != "" {
			row("Lock message", s.LockState.LockMessage)
		}

		if s.LockState.SupportPhone != "" {
			row("Support phone", s.LockState.SupportPhone)
		}
	}

	row("Pending commands", fmt.Sprintf("%d", s.PendingCommand))
	row("Pending reports", fmt.Sprintf("%d", s.PendingReports))

	lastSync := "never"
	if s.LastSync != nil {
		lastSync = s.LastSync.Format(time.RFC3339)
	}

	row("Last sync", lastSync)

	return b.String()
}

func renderAudit(st logStyles, entries []channel.AuditEntry) string {
	if len(entries) == 0 {
		return st.value.Render("no SMS commands recorded") + "\n"
	}

	var b strings.Builder

	for _, e := range entries {
		verdict := st.success.Render("accepted")
		if !e.Accepted {
			verdict = st.error.Render("rejected")
			if e.Reason != "" {
				verdict += " " + st.value.Render("("+e.Reason+")")
			}
		}

		fmt.Fprintf(&b, "%s  %-16s %-8s %s\n",
			st.label.Render(e.At.Format(time.RFC3339)), e.Sender, string(e.Command), verdict)
	}

	return b.String()
}
