// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privchat/privchat/backend/middleware"
	"github.com/privchat/privchat/backend/models"
)

func newMessageStack(store *fakeStore) (post, list http.Handler, publisher *fakePublisher) {
	publisher = &fakePublisher{}
	h := NewMessageHandler(store, publisher)
	auth := middleware.NewRoomAuth(store)
	return auth(http.HandlerFunc(h.PostMessage)), auth(http.HandlerFunc(h.ListMessages)), publisher
}

func postMessage(t *testing.T, h http.Handler, roomID, token, text string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	req := roomRequest("POST", "/api/room/"+roomID+"/messages", roomID, body)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func listMessages(t *testing.T, h http.Handler, roomID, token string) []models.Message {
	t.Helper()
	req := roomRequest("GET", "/api/room/"+roomID+"/messages", roomID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []models.Message `json:"messages"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, len(resp.Messages), resp.Count)
	return resp.Messages
}

func TestPostAndListPreservesOrder(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 2)
	post, list, _ := newMessageStack(store)

	require.Equal(t, http.StatusCreated, postMessage(t, post, "room-1", tokens[0], "first").Code)
	require.Equal(t, http.StatusCreated, postMessage(t, post, "room-1", tokens[1], "second").Code)
	require.Equal(t, http.StatusCreated, postMessage(t, post, "room-1", tokens[0], "third").Code)

	messages := listMessages(t, list, "room-1", tokens[0])
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)
	assert.Equal(t, "third", messages[2].Text)
}

func TestSenderIsDerivedServerSide(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 1)
	post, list, _ := newMessageStack(store)

	// A spoofed sender field in the body must be ignored; only text is read.
	body := []byte(`{"text":"hello","sender":"admin"}`)
	req := roomRequest("POST", "/api/room/room-1/messages", "room-1", body)
	req.Header.Set("Authorization", "Bearer "+tokens[0])
	w := httptest.NewRecorder()
	post.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	messages := listMessages(t, list, "room-1", tokens[0])
	require.Len(t, messages, 1)
	assert.Equal(t, models.DeriveSenderLabel(tokens[0]), messages[0].Sender)
	assert.NotEqual(t, "admin", messages[0].Sender)
}

func TestListRedactsOtherTokens(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 2)
	post, list, _ := newMessageStack(store)

	postMessage(t, post, "room-1", tokens[0], "from A")
	postMessage(t, post, "room-1", tokens[1], "from B")

	viewA := listMessages(t, list, "room-1", tokens[0])
	require.Len(t, viewA, 2)
	assert.Equal(t, tokens[0], viewA[0].Token, "own message stays self-identifiable")
	assert.Empty(t, viewA[1].Token, "another participant's token must never be disclosed")

	viewB := listMessages(t, list, "room-1", tokens[1])
	assert.Empty(t, viewB[0].Token)
	assert.Equal(t, tokens[1], viewB[1].Token)
}

func TestPostMessageValidation(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 1)
	post, _, _ := newMessageStack(store)

	t.Run("empty text", func(t *testing.T) {
		w := postMessage(t, post, "room-1", tokens[0], "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation")
	})

	t.Run("oversized text", func(t *testing.T) {
		w := postMessage(t, post, "room-1", tokens[0], strings.Repeat("x", models.MaxMessageLength+1))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("text at the limit", func(t *testing.T) {
		w := postMessage(t, post, "room-1", tokens[0], strings.Repeat("x", models.MaxMessageLength))
		require.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestPostMessageRoomExpiredMidRequest(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 1)
	store.dropOnAppend = true
	post, _, publisher := newMessageStack(store)

	w := postMessage(t, post, "room-1", tokens[0], "too late")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "room-not-found")
	assert.Empty(t, publisher.emitted(), "no event for a failed append")
}

func TestMessageEventOmitsToken(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 1)
	post, _, publisher := newMessageStack(store)

	require.Equal(t, http.StatusCreated, postMessage(t, post, "room-1", tokens[0], "hello").Code)

	events := publisher.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, "chat.message", events[0].event)

	msg, ok := events[0].payload.(models.Message)
	require.True(t, ok)
	assert.Empty(t, msg.Token, "broadcast copy must not leak the bearer token")
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, models.DeriveSenderLabel(tokens[0]), msg.Sender)
}

func TestListMessagesAfterDestroyBehavesAsAbsent(t *testing.T) {
	store := newFakeStore()
	tokens := store.seedRoom("room-1", models.MaxParticipants, 1)
	post, list, _ := newMessageStack(store)

	postMessage(t, post, "room-1", tokens[0], "soon gone")
	require.NoError(t, store.DestroyRoom(context.Background(), "room-1"))

	// Membership vanished with the room, so the read is rejected outright
	// rather than returning an empty-but-present room.
	req := roomRequest("GET", "/api/room/room-1/messages", "room-1", nil)
	req.Header.Set("Authorization", "Bearer "+tokens[0])
	w := httptest.NewRecorder()
	list.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Unauthorized", resp["error"])
}
