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

package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Event names published to the realtime transport.
const (
	EventMessage = "chat.message"
	EventDestroy = "chat.destroy"
)

// Publisher notifies the external realtime transport of room events.
// Emit is best-effort: the triggering state change is already committed, so a
// publish failure is logged and never surfaced to the caller.
type Publisher interface {
	Emit(ctx context.Context, roomID, event string, payload interface{})
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// RedisPublisher fans events out over redis pub/sub, one channel per room.
// External viewers subscribe to these channels through the realtime layer.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Emit(ctx context.Context, roomID, event string, payload interface{}) {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id": roomID,
			"event":   event,
		}).Warn("Failed to marshal event payload")
		return
	}

	if err := p.rdb.Publish(ctx, "room:"+roomID, data).Err(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id": roomID,
			"event":   event,
		}).Warn("Failed to publish room event")
	}
}
