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

import "time"

const (
	// Room lifetime bounds. Requested TTLs are clamped into [MinTTL, MaxTTL];
	// a request without a TTL gets DefaultTTL.
	DefaultTTL = 10 * time.Minute
	MinTTL     = 5 * time.Minute
	MaxTTL     = 6 * time.Hour

	// MaxParticipants is the capacity of a standard room. Rooms created with a
	// valid license get PremiumMaxParticipants instead.
	MaxParticipants        = 5
	PremiumMaxParticipants = 10
)

// Room is the metadata record for an ephemeral chat room. The record's
// presence in the store is what defines room existence; once it expires or is
// destroyed, the room is gone along with every derived key.
type Room struct {
	ID              string    `json:"room_id"`
	CreatedAt       time.Time `json:"created_at"`
	TTL             int       `json:"ttl"` // seconds, as granted at creation
	HasPassword     bool      `json:"has_password"`
	PasswordHash    string    `json:"-"`
	MaxParticipants int       `json:"max_participants"`
}

// RoomInfo is the public view of a room used by the join flow. IsConnected is
// only meaningful when the caller presented a token.
type RoomInfo struct {
	Exists           bool `json:"exists"`
	HasPassword      bool `json:"hasPassword"`
	ParticipantCount int  `json:"participantCount"`
	IsFull           bool `json:"isFull"`
	IsConnected      bool `json:"isConnected"`
}

// ClampTTL maps a requested TTL in seconds to the effective room lifetime.
// Zero (or negative) means "not specified" and yields the default.
func ClampTTL(requestedSeconds int) time.Duration {
	if requestedSeconds <= 0 {
		return DefaultTTL
	}
	ttl := time.Duration(requestedSeconds) * time.Second
	if ttl < MinTTL {
		return MinTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}
