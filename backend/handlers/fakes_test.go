// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

// fakeStore is an in-memory stand-in for the redis store. Join holds the
// mutex across the capacity check and the append, mirroring the atomicity the
// real store gets from its server-side script.
type fakeStore struct {
	mu    sync.Mutex
	rooms map[string]*fakeRoom

	// dropOnAppend simulates a room expiring between authorization and the
	// message append.
	dropOnAppend bool
}

type fakeRoom struct {
	meta         models.Room
	ttl          time.Duration
	participants map[string]bool
	messages     []models.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[string]*fakeRoom)}
}

func (s *fakeStore) CreateRoom(_ context.Context, room models.Room, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = &fakeRoom{
		meta:         room,
		ttl:          ttl,
		participants: make(map[string]bool),
	}
	return nil
}

func (s *fakeStore) GetRoomInfo(_ context.Context, roomID, token string) (*models.RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return &models.RoomInfo{}, nil
	}
	connected := token != "" && room.participants[token]
	count := len(room.participants)
	return &models.RoomInfo{
		Exists:           true,
		HasPassword:      room.meta.HasPassword,
		ParticipantCount: count,
		IsFull:           !connected && count >= room.meta.MaxParticipants,
		IsConnected:      connected,
	}, nil
}

func (s *fakeStore) GetPasswordHash(_ context.Context, roomID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return "", storage.ErrRoomNotFound
	}
	return room.meta.PasswordHash, nil
}

func (s *fakeStore) JoinRoom(_ context.Context, roomID, existingToken string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return "", false, storage.ErrRoomNotFound
	}
	if existingToken != "" && room.participants[existingToken] {
		return existingToken, true, nil
	}
	if len(room.participants) >= room.meta.MaxParticipants {
		return "", false, storage.ErrRoomFull
	}
	token := uuid.New().String()
	room.participants[token] = true
	return token, false, nil
}

func (s *fakeStore) RoomTTL(_ context.Context, roomID string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return 0, nil
	}
	return room.ttl, nil
}

func (s *fakeStore) DestroyRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *fakeStore) AppendMessage(_ context.Context, roomID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropOnAppend {
		delete(s.rooms, roomID)
	}
	room, ok := s.rooms[roomID]
	if !ok {
		return storage.ErrRoomNotFound
	}
	room.messages = append(room.messages, msg)
	return nil
}

func (s *fakeStore) ListMessages(_ context.Context, roomID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	out := make([]models.Message, len(room.messages))
	copy(out, room.messages)
	return out, nil
}

// seedRoom creates a room directly in the fake and returns n joined tokens.
func (s *fakeStore) seedRoom(roomID string, maxParticipants, joined int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := &fakeRoom{
		meta: models.Room{
			ID:              roomID,
			CreatedAt:       time.Now(),
			TTL:             int(models.DefaultTTL.Seconds()),
			MaxParticipants: maxParticipants,
		},
		ttl:          models.DefaultTTL,
		participants: make(map[string]bool),
	}
	tokens := make([]string, 0, joined)
	for i := 0; i < joined; i++ {
		token := uuid.New().String()
		room.participants[token] = true
		tokens = append(tokens, token)
	}
	s.rooms[roomID] = room
	return tokens
}

// fakePublisher records emitted events in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []emittedEvent
}

type emittedEvent struct {
	roomID  string
	event   string
	payload interface{}
}

func (p *fakePublisher) Emit(_ context.Context, roomID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, emittedEvent{roomID: roomID, event: event, payload: payload})
}

func (p *fakePublisher) emitted() []emittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]emittedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// fakeLicenses validates only the keys it was told are good.
type fakeLicenses struct {
	valid map[string]bool
}

func (f *fakeLicenses) ValidateLicense(_ context.Context, key string) (bool, error) {
	return f.valid[key], nil
}
