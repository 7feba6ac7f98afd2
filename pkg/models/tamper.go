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

package models

import "time"

// TamperBaseline is the SIM fingerprint captured once after provisioning.
type TamperBaseline struct {
	OriginalSIMIdentity string    `json:"original_sim_identity"`
	OriginalCarrier     string    `json:"original_carrier"`
	CapturedAt          time.Time `json:"captured_at"`
	// LastReported is the last foreign ICCID a SIM_CHANGE event was raised for.
	LastReported string `json:"last_reported,omitempty"`
}

// SIMInfo is one read of the currently inserted SIM.
type SIMInfo struct {
	ICCID   string `json:"iccid"`
	Carrier string `json:"carrier,omitempty"`
}

// Readable reports whether the read produced a usable identity.
func (s SIMInfo) Readable() bool {
	return s.ICCID != ""
}

// OfflineTokens are the shared secrets that authenticate SMS commands.
type OfflineTokens struct {
	LockToken   string    `json:"lock_token,omitempty"`
	UnlockToken string    `json:"unlock_token,omitempty"`
	RotatedAt   time.Time `json:"rotated_at"`
}
