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
	"fmt"
	"io"
)

// ShowHelp prints the usage text.
func ShowHelp(out io.Writer) {
	fmt.Fprint(out, `devicelockctl talks to a device lock agent over its loopback ingress.

Usage:
  devicelockctl [global flags] <subcommand> [flags]

Global flags:
  -addr string      agent ingress address (default 127.0.0.1:8765, env DEVICELOCK_INGRESS_ADDR)
  -api-key string   ingress API key (env DEVICELOCK_INGRESS_API_KEY)
  -json             print raw JSON responses
  -help             show this message

Subcommands:
  status                                  show lock state and queue depth
  audit                                   list received SMS commands
  sms -sender N -body LOCK:<token>        deliver an SMS as the broadcast glue would
  sim -iccid ID [-carrier NAME]           report the inserted SIM
  provision -lock-token T -unlock-token T [-lock-message M] [-support-phone P]
                                          store enrollment tokens
  command [-params P] <LOCK|UNLOCK|...>   queue a local command (needs -api-key)
  connectivity                            trigger a sync of pending reports
  version                                 print the version
`)
}
