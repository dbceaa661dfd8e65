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

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/privchat/privchat/backend/storage"
)

type contextKey string

const (
	roomIDKey contextKey = "room_id"
	tokenKey  contextKey = "token"
)

// NewRoomAuth builds the per-request authorization middleware. It resolves a
// Bearer token and the request's room id into a verified participant context,
// re-checking room existence and membership against the store on every call
// so that destroy and expiry take effect immediately.
//
// Every rejection is the same 401 body; the internal reason only goes to the
// logs, so callers cannot enumerate rooms or tokens.
func NewRoomAuth(store storage.RoomStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := BearerToken(r)
			if reason != "" {
				rejectUnauthorized(w, r, reason)
				return
			}

			roomID := RoomID(r)
			if roomID == "" {
				rejectUnauthorized(w, r, "missing room id")
				return
			}

			info, err := store.GetRoomInfo(r.Context(), roomID, token)
			if err != nil {
				logrus.WithError(err).WithField("room_id", roomID).Error("Auth check failed against store")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !info.Exists {
				rejectUnauthorized(w, r, "room does not exist")
				return
			}
			if !info.IsConnected {
				rejectUnauthorized(w, r, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), roomIDKey, roomID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken parses the Authorization header, scheme case-insensitive.
// The second return value is the rejection reason, "" on success.
func BearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid authorization format"
	}
	return parts[1], ""
}

// RoomID extracts the room id from the route path, falling back to the
// roomId query parameter.
func RoomID(r *http.Request) string {
	if roomID := mux.Vars(r)["roomId"]; roomID != "" {
		return roomID
	}
	return r.URL.Query().Get("roomId")
}

// AuthRoomID returns the verified room id set by NewRoomAuth.
func AuthRoomID(r *http.Request) (string, bool) {
	roomID, ok := r.Context().Value(roomIDKey).(string)
	return roomID, ok
}

// AuthToken returns the verified participant token set by NewRoomAuth.
func AuthToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenKey).(string)
	return token, ok
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	logrus.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"reason": reason,
	}).Debug("Rejected unauthorized request")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// CORS middleware for handling cross-origin requests
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigins := []string{
			"https://privchat.dev",
			"https://app.privchat.dev",
			"http://localhost:3000", // Development
		}

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
