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

package lockstate

import (
	"context"
	"strings"

	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/platform"
)

// ExecEnforcer delegates every enforcer and alarm call to a device-owner helper binary,
// e.g. `dpm-shim apply-locked`. The helper must exit non-zero on failure.
type ExecEnforcer struct {
	runner platform.Runner
	helper string
	args   []string
}

// NewExecEnforcer builds an enforcer around helper, which may carry leading arguments.
func NewExecEnforcer(runner platform.Runner, helper string) (*ExecEnforcer, error) {
	name, args, err := platform.SplitCommand(helper)
	if err != nil {
		return nil, err
	}

	return &ExecEnforcer{runner: runner, helper: name, args: args}, nil
}

func (e *ExecEnforcer) run(ctx context.Context, args ...string) (string, error) {
	full := append(append([]string(nil), e.args...), args...)

	return e.runner.Output(ctx, e.helper, full...)
}

func (e *ExecEnforcer) IsDeviceOwner(ctx context.Context) (bool, error) {
	out, err := e.run(ctx, "is-device-owner")
	if err != nil {
		return false, err
	}

	return platform.Truthy(out), nil
}

func (e *ExecEnforcer) ApplyLockedRestrictions(ctx context.Context) error {
	_, err := e.run(ctx, "apply-locked")

	return err
}

func (e *ExecEnforcer) ApplyBaseRestrictions(ctx context.Context) error {
	_, err := e.run(ctx, "apply-base")

	return err
}

func (e *ExecEnforcer) ClearLockedRestrictions(ctx context.Context) error {
	_, err := e.run(ctx, "clear-locked")

	return err
}

func (e *ExecEnforcer) SetKioskAllowList(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		_, err := e.run(ctx, "clear-kiosk")

		return err
	}

	_, err := e.run(ctx, "set-kiosk", strings.Join(packages, ","))

	return err
}

func (e *ExecEnforcer) StartAlarm(ctx context.Context) error {
	_, err := e.run(ctx, "start-alarm")

	return err
}

func (e *ExecEnforcer) StopAlarm(ctx context.Context) error {
	_, err := e.run(ctx, "stop-alarm")

	return err
}

// LogEnforcer only logs. Used for dry runs and on emulators without a device owner.
type LogEnforcer struct {
	logger logger.Logger
}

func NewLogEnforcer(log logger.Logger) *LogEnforcer {
	return &LogEnforcer{logger: log}
}

func (*LogEnforcer) IsDeviceOwner(context.Context) (bool, error) { return true, nil }

func (l *LogEnforcer) ApplyLockedRestrictions(context.Context) error {
	l.logger.Info().Msg("dry-run: apply locked restrictions")
	return nil
}

func (l *LogEnforcer) ApplyBaseRestrictions(context.Context) error {
	l.logger.Info().Msg("dry-run: apply base restrictions")
	return nil
}

func (l *LogEnforcer) ClearLockedRestrictions(context.Context) error {
	l.logger.Info().Msg("dry-run: clear locked restrictions")
	return nil
}

func (l *LogEnforcer) SetKioskAllowList(_ context.Context, packages []string) error {
	l.logger.Info().Strs("packages", packages).Msg("dry-run: set kiosk allow list")
	return nil
}

func (l *LogEnforcer) StartAlarm(context.Context) error {
	l.logger.Info().Msg("dry-run: start alarm")
	return nil
}

func (l *LogEnforcer) StopAlarm(context.Context) error {
	l.logger.Info().Msg("dry-run: stop alarm")
	return nil
}

var (
	_ PolicyEnforcer  = (*ExecEnforcer)(nil)
	_ AlarmController = (*ExecEnforcer)(nil)
	_ PolicyEnforcer  = (*LogEnforcer)(nil)
	_ AlarmController = (*LogEnforcer)(nil)
)
