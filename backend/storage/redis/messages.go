// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

// appendScript appends a message only while the room's metadata still exists,
// and re-syncs the log's and sender cache's expiry to the metadata's remaining
// TTL in the same execution. The log can therefore never outlive its room,
// and a room that expired between authorization and append surfaces as a
// visible room-not-found instead of a silent write into orphaned keys.
//
// KEYS[1] = meta:{roomId}, KEYS[2] = messages:{roomId}, KEYS[3] = senders:{roomId}
// ARGV[1] = message payload (json), ARGV[2] = author token, ARGV[3] = sender label
var appendScript = redis.NewScript(`
local ttl = redis.call("TTL", KEYS[1])
if ttl == -2 then
	return -1
end
redis.call("RPUSH", KEYS[2], ARGV[1])
redis.call("HSETNX", KEYS[3], ARGV[2], ARGV[3])
if ttl > 0 then
	redis.call("EXPIRE", KEYS[2], ttl)
	redis.call("EXPIRE", KEYS[3], ttl)
end
return redis.call("LLEN", KEYS[2])
`)

// AppendMessage appends msg to the room's ordered log. The stored form keeps
// the authoring token for attribution; callers must redact before disclosure.
func (s *Store) AppendMessage(ctx context.Context, roomID string, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	n, err := appendScript.Run(ctx, s.rdb,
		[]string{metaKey(roomID), messagesKey(roomID), sendersKey(roomID)},
		payload, msg.Token, msg.Sender).Int64()
	if err != nil {
		return fmt.Errorf("failed to run append script: %w", err)
	}
	if n == -1 {
		return storage.ErrRoomNotFound
	}
	return nil
}

// ListMessages returns the full log in append order. Malformed entries are
// skipped rather than failing the whole read.
func (s *Store) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	raw, err := s.rdb.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read message log: %w", err)
	}

	messages := make([]models.Message, 0, len(raw))
	for _, entry := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Skipping malformed message entry")
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
