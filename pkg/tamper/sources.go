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

package tamper

import (
	"context"
	"os"
	"strings"

	"github.com/carverauto/devicelock/pkg/platform"
)

var (
	defaultSafeModeProps = []string{"ro.sys.safemode", "persist.sys.safemode"}
)

// PropertySource checks system properties through getprop.
type PropertySource struct {
	Runner     platform.Runner
	Command    string
	Properties []string
}

func NewPropertySource(runner platform.Runner) *PropertySource {
	return &PropertySource{
		Runner:     runner,
		Command:    "getprop",
		Properties: defaultSafeModeProps,
	}
}

func (*PropertySource) Name() string { return "system_property" }

// SafeMode is true when any configured property reads as true. The first failing read is
// returned only if no property answered.
func (p *PropertySource) SafeMode(ctx context.Context) (bool, error) {
	var firstErr error

	answered := false

	for _, prop := range p.Properties {
		out, err := p.Runner.Output(ctx, p.Command, prop)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		answered = true

		if platform.Truthy(out) {
			return true, nil
		}
	}

	if !answered && firstErr != nil {
		return false, firstErr
	}

	return false, nil
}

// GlobalSettingSource checks `settings get global safe_boot`.
type GlobalSettingSource struct {
	Runner  platform.Runner
	Command string
	Key     string
}

func NewGlobalSettingSource(runner platform.Runner) *GlobalSettingSource {
	return &GlobalSettingSource{
		Runner:  runner,
		Command: "settings",
		Key:     "safe_boot",
	}
}

func (*GlobalSettingSource) Name() string { return "global_setting" }

func (g *GlobalSettingSource) SafeMode(ctx context.Context) (bool, error) {
	out, err := g.Runner.Output(ctx, g.Command, "get", "global", g.Key)
	if err != nil {
		return false, err
	}

	return platform.Truthy(out), nil
}

// EnvSource reads an environment variable. Used on emulators and in lab rigs.
type EnvSource struct {
	Var string
}

func (*EnvSource) Name() string { return "environment" }

func (e *EnvSource) SafeMode(context.Context) (bool, error) {
	return platform.Truthy(strings.TrimSpace(os.Getenv(e.Var))), nil
}
