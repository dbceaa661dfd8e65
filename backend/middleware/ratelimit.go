// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/privchat/privchat/backend/storage"
)

// NewRateLimit builds the fixed-window limiter shared by the public mutation
// endpoints. When the store is unreachable the limiter fails open: losing a
// chat message to a degraded counter is worse than letting a burst through.
func NewRateLimit(store storage.RateLimitStore, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ClientIdentity(r)

			count, reset, err := store.IncrementRequestCount(r.Context(), identity, window)
			if err != nil {
				logrus.WithError(err).WithField("identity", identity).Warn("Rate limit store unavailable, failing open")
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":     "rate_limit_exceeded",
					"message":   "Too many requests",
					"resetTime": time.Now().Add(reset).UnixMilli(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIdentity buckets requests by the first forwarded-for hop, then the
// real-ip header. Clients with neither all share one "unknown" bucket.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	return "unknown"
}
