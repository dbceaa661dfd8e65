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

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/privchat/privchat/backend/events"
	"github.com/privchat/privchat/backend/middleware"
	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

type RoomHandler struct {
	store    storage.RoomStore
	events   events.Publisher
	licenses storage.LicenseChecker
}

func NewRoomHandler(store storage.RoomStore, publisher events.Publisher, licenses storage.LicenseChecker) *RoomHandler {
	return &RoomHandler{store: store, events: publisher, licenses: licenses}
}

// CreateRoom mints a room with a clamped lifetime. Password protection and
// the larger capacity are premium parameters gated on a valid license key;
// the TTL clamp itself applies to everyone.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TTL        int    `json:"ttl,omitempty"`
		Password   string `json:"password,omitempty"`
		LicenseKey string `json:"licenseKey,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "validation", "Invalid request body")
		return
	}

	maxParticipants := models.MaxParticipants
	if req.Password != "" || req.LicenseKey != "" {
		valid, err := h.licenses.ValidateLicense(r.Context(), req.LicenseKey)
		if err != nil {
			logrus.WithError(err).Error("License check failed")
			writeError(w, http.StatusInternalServerError, "server-error", "Failed to verify license")
			return
		}
		if !valid {
			writeError(w, http.StatusForbidden, "license-required", "A valid license is required for password-protected rooms")
			return
		}
		maxParticipants = models.PremiumMaxParticipants
	}

	ttl := models.ClampTTL(req.TTL)

	room := models.Room{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now(),
		TTL:             int(ttl.Seconds()),
		MaxParticipants: maxParticipants,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Error("Failed to hash room password")
			writeError(w, http.StatusInternalServerError, "server-error", "Failed to create room")
			return
		}
		room.HasPassword = true
		room.PasswordHash = string(hash)
	}

	if err := h.store.CreateRoom(r.Context(), room, ttl); err != nil {
		logrus.WithError(err).Error("Failed to create room")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to create room")
		return
	}

	logrus.WithFields(logrus.Fields{
		"room_id": room.ID,
		"ttl":     room.TTL,
	}).Info("Room created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"roomId":      room.ID,
		"ttl":         room.TTL,
		"hasPassword": room.HasPassword,
	})
}

// GetRoomInfo is the open pre-join check: exists, password gate, capacity.
// An optional bearer token lets returning participants see isConnected.
func (h *RoomHandler) GetRoomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := middleware.RoomID(r)
	token, _ := middleware.BearerToken(r)

	info, err := h.store.GetRoomInfo(r.Context(), roomID, token)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to read room info")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to read room info")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// VerifyPassword checks a candidate against the stored hash. A missing room
// is a distinct outcome from a wrong password.
func (h *RoomHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	roomID := middleware.RoomID(r)

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "Invalid request body")
		return
	}

	hash, err := h.store.GetPasswordHash(r.Context(), roomID)
	if errors.Is(err, storage.ErrRoomNotFound) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"valid": false,
			"error": "room-not-found",
		})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to read password hash")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to verify password")
		return
	}

	valid := hash == "" ||
		bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) == nil

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"valid": valid})
}

// JoinRoom admits the caller, minting a participant token. A bearer token
// already in the participant set is returned unchanged with
// alreadyConnected=true. Capacity enforcement is atomic in the store.
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := middleware.RoomID(r)
	existing, _ := middleware.BearerToken(r)

	token, already, err := h.store.JoinRoom(r.Context(), roomID, existing)
	if errors.Is(err, storage.ErrRoomNotFound) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "room-not-found",
		})
		return
	}
	if errors.Is(err, storage.ErrRoomFull) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "room-full",
		})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to join room")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "server-error",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":          true,
		"token":            token,
		"alreadyConnected": already,
	})
}

// GetTTL reports the room's remaining lifetime in seconds, 0 once it is gone.
func (h *RoomHandler) GetTTL(w http.ResponseWriter, r *http.Request) {
	roomID, _ := middleware.AuthRoomID(r)

	ttl, err := h.store.RoomTTL(r.Context(), roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to read room ttl")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to read ttl")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"ttl": int(ttl.Seconds())})
}

// DestroyRoom broadcasts the destroy event, then deletes every key for the
// room. Destroying a room that is already gone succeeds quietly.
func (h *RoomHandler) DestroyRoom(w http.ResponseWriter, r *http.Request) {
	roomID, _ := middleware.AuthRoomID(r)

	// Event first: subscribers must hear about the destruction even if they
	// would no longer find the room afterwards.
	h.events.Emit(r.Context(), roomID, events.EventDestroy, map[string]bool{"isDestroyed": true})

	if err := h.store.DestroyRoom(r.Context(), roomID); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to destroy room")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to destroy room")
		return
	}

	logrus.WithField("room_id", roomID).Info("Room destroyed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "destroyed"})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
