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

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// CmdConfig holds parsed command-line configuration.
type CmdConfig struct {
	Help   bool
	SubCmd string
	Addr   string
	APIKey string
	JSON   bool

	Sender       string
	Body         string
	ICCID        string
	Carrier      string
	LockToken    string
	UnlockToken  string
	LockMessage  string
	SupportPhone string
	Command      string
	Params       string
}

// SubcommandHandler parses the flags of one subcommand into cfg.
type SubcommandHandler interface {
	Parse(args []string, cfg *CmdConfig) error
}

// logStyles defines styles for terminal output.
type logStyles struct {
	label, value, success, warning, error lipgloss.Style
}

func newLogStyles() logStyles {
	return logStyles{
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Width(18),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F8F8F2")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Bold(true),
		error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true),
	}
}
