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

package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerOutput(t *testing.T) {
	r := NewExecRunner(0)

	out, err := r.Output(context.Background(), "echo", "ro.sys.safemode")
	require.NoError(t, err)
	assert.Equal(t, "ro.sys.safemode", out)
}

func TestExecRunnerRejectsShellMeta(t *testing.T) {
	r := NewExecRunner(0)

	_, err := r.Output(context.Background(), "echo", "x; reboot")
	require.ErrorIs(t, err, errInvalidArgument)

	_, err = r.Output(context.Background(), " ")
	require.ErrorIs(t, err, errEmptyCommand)
}

func TestSplitCommand(t *testing.T) {
	name, args, err := SplitCommand("  settings get global safe_boot ")
	require.NoError(t, err)
	assert.Equal(t, "settings", name)
	assert.Equal(t, []string{"get", "global", "safe_boot"}, args)

	_, _, err = SplitCommand("")
	require.ErrorIs(t, err, errEmptyCommand)
}

func TestTruthy(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", " yes\n", "on"} {
		assert.True(t, Truthy(s), s)
	}

	for _, s := range []string{"", "0", "false", "null"} {
		assert.False(t, Truthy(s), s)
	}
}
