// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxMessageLength bounds the text of a single message.
const MaxMessageLength = 1000

// Message is a single chat message. Token is the authoring participant token;
// it is stored internally for attribution but must never reach a reader other
// than its owner, so responses go through Redact first.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	RoomID    string `json:"roomId"`
	Token     string `json:"token,omitempty"`
}

// DeriveSenderLabel maps a participant token to a stable, human-readable
// sender tag. The label is derived server-side so clients cannot impersonate
// other participants, and it leaks nothing usable about the token itself.
func DeriveSenderLabel(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "guest-" + hex.EncodeToString(sum[:3])
}

// Redact strips the authoring token from every message that does not belong
// to the viewer. The viewer's own messages keep their token so the client can
// mark them as "mine".
func Redact(messages []Message, viewerToken string) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		if m.Token != viewerToken {
			m.Token = ""
		}
		out[i] = m
	}
	return out
}
