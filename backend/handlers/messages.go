// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/privchat/privchat/backend/events"
	"github.com/privchat/privchat/backend/middleware"
	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

type MessageHandler struct {
	store  storage.MessageStore
	events events.Publisher
}

func NewMessageHandler(store storage.MessageStore, publisher events.Publisher) *MessageHandler {
	return &MessageHandler{store: store, events: publisher}
}

// PostMessage appends an authorized participant's message to the room log.
// The sender label comes from the participant token, never from the request
// body, so one participant cannot write under another's name.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID, _ := middleware.AuthRoomID(r)
	token, _ := middleware.AuthToken(r)

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "Invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "validation", "Message text must not be empty")
		return
	}
	if len(req.Text) > models.MaxMessageLength {
		writeError(w, http.StatusBadRequest, "validation", "Message text exceeds 1000 characters")
		return
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		Sender:    models.DeriveSenderLabel(token),
		Text:      req.Text,
		Timestamp: time.Now().UnixMilli(),
		RoomID:    roomID,
		Token:     token,
	}

	if err := h.store.AppendMessage(r.Context(), roomID, msg); err != nil {
		// The room can expire between authorization and append; surface it
		// rather than writing into orphaned keys.
		if errors.Is(err, storage.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room-not-found", "Room does not exist")
			return
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to append message")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to post message")
		return
	}

	// The broadcast copy never carries the authoring token.
	public := msg
	public.Token = ""
	h.events.Emit(r.Context(), roomID, events.EventMessage, public)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// ListMessages returns the room's log in append order. Other participants'
// tokens are redacted; only the caller's own messages keep theirs.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID, _ := middleware.AuthRoomID(r)
	token, _ := middleware.AuthToken(r)

	messages, err := h.store.ListMessages(r.Context(), roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list messages")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to list messages")
		return
	}

	redacted := models.Redact(messages, token)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages": redacted,
		"count":    len(redacted),
	})
}
