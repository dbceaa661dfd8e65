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

package storage

import (
	"context"
	"time"

	"github.com/privchat/privchat/backend/models"
)

// RoomStore owns room metadata: creation, participant admission, TTL and
// destruction. All room state lives in the backing store; service instances
// hold none of it, so every check goes back to the store.
type RoomStore interface {
	// CreateRoom persists the metadata record with the given lifetime.
	CreateRoom(ctx context.Context, room models.Room, ttl time.Duration) error

	// GetRoomInfo is the canonical existence check. A missing metadata record
	// (including expired-and-reaped rooms) yields Exists=false, never an error.
	// token may be empty; when set, IsConnected reports membership.
	GetRoomInfo(ctx context.Context, roomID, token string) (*models.RoomInfo, error)

	// GetPasswordHash returns the stored bcrypt hash, or "" for a passwordless
	// room. A missing room is ErrRoomNotFound so callers can distinguish it
	// from a wrong password.
	GetPasswordHash(ctx context.Context, roomID string) (string, error)

	// JoinRoom admits a participant under the room's capacity. When
	// existingToken is already a member it is returned unchanged with
	// alreadyMember=true and no state change. The capacity check and the
	// append are a single atomic operation against the store.
	JoinRoom(ctx context.Context, roomID, existingToken string) (token string, alreadyMember bool, err error)

	// RoomTTL returns the remaining lifetime, 0 if the room is gone.
	RoomTTL(ctx context.Context, roomID string) (time.Duration, error)

	// DestroyRoom deletes the metadata, participant set, message log and
	// sender cache together. Destroying an absent room is a no-op.
	DestroyRoom(ctx context.Context, roomID string) error
}

// MessageStore is the append-only per-room message log. The log's expiry is
// re-synced to the room metadata's on every append so it never outlives the
// room.
type MessageStore interface {
	// AppendMessage appends msg (internal form, token included) to the room's
	// log. ErrRoomNotFound if the metadata vanished since authorization.
	AppendMessage(ctx context.Context, roomID string, msg models.Message) error

	// ListMessages returns all messages in append order, tokens intact.
	// Redaction is the caller's job.
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

// RateLimitStore backs the fixed-window request limiter.
type RateLimitStore interface {
	// IncrementRequestCount bumps the counter for identity, starting the
	// window on the first hit. It returns the count after the increment and
	// the time until the window resets.
	IncrementRequestCount(ctx context.Context, identity string, window time.Duration) (count int64, reset time.Duration, err error)
}

// LicenseStore holds durable premium license records.
type LicenseStore interface {
	SaveLicense(ctx context.Context, license models.License) error
	GetLicense(ctx context.Context, key string) (*models.License, error)
	GetLicenseByEmail(ctx context.Context, email string) (*models.License, error)
	ExtendLicense(ctx context.Context, key string, days int) error
}

// LicenseChecker is the capability check the room core consumes: is this
// license key good for premium room parameters right now.
type LicenseChecker interface {
	ValidateLicense(ctx context.Context, key string) (bool, error)
}

// Store is the full ephemeral store surface implemented by the redis backend.
type Store interface {
	RoomStore
	MessageStore
	RateLimitStore
}
