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

import "errors"

var (
	ErrNotDeviceOwner     = errors.New("agent is not the device owner")
	ErrInvalidToken       = errors.New("invalid offline token")
	ErrCommandRejected    = errors.New("command is not accepted on this channel")
	ErrAlreadyProvisioned = errors.New("device is already provisioned")
	errNoTokens           = errors.New("provisioning requires offline tokens")
)
