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
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

// joinScript admits a participant atomically: the existence check, the
// idempotent-rejoin check, the capacity check and the set append all happen
// in one script execution, so concurrent joins from different replicas can
// never push the participant set past the room's capacity.
//
// KEYS[1] = meta:{roomId}, KEYS[2] = participants:{roomId}
// ARGV[1] = freshly minted token, ARGV[2] = existing token ("" if none)
//
// Returns {status, token}: 0 = joined, 1 = already a member,
// -1 = room not found, -2 = room full.
var joinScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return {-1, ""}
end
if ARGV[2] ~= "" and redis.call("SISMEMBER", KEYS[2], ARGV[2]) == 1 then
	return {1, ARGV[2]}
end
local max = tonumber(redis.call("HGET", KEYS[1], "max_participants")) or 5
if redis.call("SCARD", KEYS[2]) >= max then
	return {-2, ""}
end
redis.call("SADD", KEYS[2], ARGV[1])
local ttl = redis.call("TTL", KEYS[1])
if ttl > 0 then
	redis.call("EXPIRE", KEYS[2], ttl)
end
return {0, ARGV[1]}
`)

// CreateRoom writes the metadata hash and sets its expiry in one pipeline.
func (s *Store) CreateRoom(ctx context.Context, room models.Room, ttl time.Duration) error {
	hasPassword := "0"
	if room.HasPassword {
		hasPassword = "1"
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, metaKey(room.ID), map[string]interface{}{
		"created_at":       room.CreatedAt.UnixMilli(),
		"ttl":              room.TTL,
		"has_password":     hasPassword,
		"password_hash":    room.PasswordHash,
		"max_participants": room.MaxParticipants,
	})
	pipe.Expire(ctx, metaKey(room.ID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// GetRoomInfo reads existence, password flag, capacity and membership in one
// round trip. A missing metadata record is reported as Exists=false, never as
// an error; that is the canonical "does this room still exist" check.
func (s *Store) GetRoomInfo(ctx context.Context, roomID, token string) (*models.RoomInfo, error) {
	pipe := s.rdb.Pipeline()
	existsCmd := pipe.Exists(ctx, metaKey(roomID))
	metaCmd := pipe.HMGet(ctx, metaKey(roomID), "has_password", "max_participants")
	countCmd := pipe.SCard(ctx, participantsKey(roomID))
	var memberCmd *redis.BoolCmd
	if token != "" {
		memberCmd = pipe.SIsMember(ctx, participantsKey(roomID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read room info: %w", err)
	}

	if existsCmd.Val() == 0 {
		return &models.RoomInfo{}, nil
	}

	fields := metaCmd.Val()
	hasPassword := fields[0] == "1"
	max := models.MaxParticipants
	if v, ok := fields[1].(string); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			max = n
		}
	}

	count := int(countCmd.Val())
	connected := memberCmd != nil && memberCmd.Val()

	return &models.RoomInfo{
		Exists:           true,
		HasPassword:      hasPassword,
		ParticipantCount: count,
		IsFull:           !connected && count >= max,
		IsConnected:      connected,
	}, nil
}

// GetPasswordHash distinguishes "room has no password" (empty hash) from
// "room is gone" (ErrRoomNotFound).
func (s *Store) GetPasswordHash(ctx context.Context, roomID string) (string, error) {
	pipe := s.rdb.Pipeline()
	existsCmd := pipe.Exists(ctx, metaKey(roomID))
	hashCmd := pipe.HGet(ctx, metaKey(roomID), "password_hash")
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return "", fmt.Errorf("failed to read password hash: %w", err)
	}
	if existsCmd.Val() == 0 {
		return "", storage.ErrRoomNotFound
	}
	return hashCmd.Val(), nil
}

// JoinRoom mints a token and runs the atomic admission script.
func (s *Store) JoinRoom(ctx context.Context, roomID, existingToken string) (string, bool, error) {
	minted := uuid.New().String()
	res, err := joinScript.Run(ctx, s.rdb,
		[]string{metaKey(roomID), participantsKey(roomID)},
		minted, existingToken).Slice()
	if err != nil {
		return "", false, fmt.Errorf("failed to run join script: %w", err)
	}
	if len(res) != 2 {
		return "", false, fmt.Errorf("unexpected join script reply: %v", res)
	}

	status, _ := res[0].(int64)
	switch status {
	case 0:
		return minted, false, nil
	case 1:
		return existingToken, true, nil
	case -2:
		return "", false, storage.ErrRoomFull
	default:
		return "", false, storage.ErrRoomNotFound
	}
}

// RoomTTL reports the remaining lifetime of the metadata record. Both a
// missing key (-2) and a key without expiry (-1, which should not happen)
// collapse to zero.
func (s *Store) RoomTTL(ctx context.Context, roomID string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, metaKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read room ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// DestroyRoom removes every key derived from the room in a single DEL.
// Deleting keys that are already gone is a no-op, which makes destroy
// idempotent.
func (s *Store) DestroyRoom(ctx context.Context, roomID string) error {
	if err := s.rdb.Del(ctx,
		metaKey(roomID),
		participantsKey(roomID),
		messagesKey(roomID),
		sendersKey(roomID),
	).Err(); err != nil {
		return fmt.Errorf("failed to destroy room: %w", err)
	}
	return nil
}
