// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package models

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// License statuses.
const (
	LicenseActive    = "active"
	LicenseExpired   = "expired"
	LicenseCancelled = "cancelled"
)

// License is a premium capability record, keyed by license key and looked up
// by email. It gates premium room parameters (password protection, larger
// capacity); the room core only ever consumes it as a boolean validity check.
type License struct {
	Key       string    `json:"license_key" db:"license_key"`
	Email     string    `json:"email" db:"email"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Valid reports whether the license is active and unexpired as of now.
func (l *License) Valid(now time.Time) bool {
	return l.Status == LicenseActive && l.ExpiresAt.After(now)
}

const licenseAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateLicenseKey mints a key of the form PRIV-XXXX-XXXX-XXXX.
func GenerateLicenseKey() (string, error) {
	parts := []string{"PRIV"}
	for i := 0; i < 3; i++ {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for j := range b {
			b[j] = licenseAlphabet[int(b[j])%len(licenseAlphabet)]
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "-"), nil
}
