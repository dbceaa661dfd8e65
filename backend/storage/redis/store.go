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

package redis

import (
	"github.com/redis/go-redis/v9"
)

// Redis key layout. Every per-room key shares the expiry horizon of the
// room's metadata record; the rate limit counters carry their own window
// expiry.
const (
	metaPrefix         = "meta:"         // meta:{roomId} - metadata hash
	participantsPrefix = "participants:" // participants:{roomId} - token set
	messagesPrefix     = "messages:"     // messages:{roomId} - message list
	sendersPrefix      = "senders:"      // senders:{roomId} - token -> label hash
	ratelimitPrefix    = "ratelimit:"    // ratelimit:{identity} - window counter
)

// Store implements the ephemeral room, message and rate limit stores on
// redis. It is safe for concurrent use; all cross-key invariants are enforced
// by single commands or server-side scripts, never client-side read-then-write.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func metaKey(roomID string) string         { return metaPrefix + roomID }
func participantsKey(roomID string) string { return participantsPrefix + roomID }
func messagesKey(roomID string) string     { return messagesPrefix + roomID }
func sendersKey(roomID string) string      { return sendersPrefix + roomID }
