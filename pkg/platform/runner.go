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

// Package platform runs the device's helper commands (getprop, settings, the device-owner
// shim) on behalf of the detectors and the policy enforcer.
package platform

//go:generate mockgen -destination=mock_platform.go -package=platform github.com/carverauto/devicelock/pkg/platform Runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	defaultTimeout = 5 * time.Second
	maxArgLength   = 256
)

var (
	// validArg keeps arguments to property names, package names and plain values.
	validArg = regexp.MustCompile(`^[a-zA-Z0-9\-_.:/,=]+$`)

	errInvalidArgument = errors.New("invalid command argument")
	errEmptyCommand    = errors.New("command is empty")
)

// Runner executes a platform command and returns its trimmed standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec. No shell is involved.
type ExecRunner struct {
	Timeout time.Duration
}

func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ExecRunner{Timeout: timeout}
}

func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errEmptyCommand
	}

	for _, a := range args {
		if err := ValidateArg(a); err != nil {
			return "", err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// ValidateArg rejects arguments that could not have come from configuration we control.
func ValidateArg(arg string) error {
	if len(arg) > maxArgLength {
		return fmt.Errorf("%w: too long (max %d characters)", errInvalidArgument, maxArgLength)
	}

	if !validArg.MatchString(arg) {
		return fmt.Errorf("%w: %q", errInvalidArgument, arg)
	}

	return nil
}

// SplitCommand splits a configured command line such as "getprop ro.sys.safemode".
func SplitCommand(line string) (name string, args []string, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, errEmptyCommand
	}

	return fields[0], fields[1:], nil
}

// Truthy interprets the usual boolean spellings of getprop/settings output.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
