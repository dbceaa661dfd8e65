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

package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/privchat/privchat/backend/config"
	"github.com/privchat/privchat/backend/events"
	"github.com/privchat/privchat/backend/handlers"
	"github.com/privchat/privchat/backend/middleware"
	"github.com/privchat/privchat/backend/storage/postgres"
	redisstore "github.com/privchat/privchat/backend/storage/redis"
)

func main() {
	cfg := config.Load()

	// Durable store (license records)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Ephemeral store (rooms, messages, rate counters)
	rdb := goredis.NewClient(&goredis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to redis")
	}

	licenseStore := postgres.NewStore(db)
	if err := licenseStore.Migrate(); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	store := redisstore.NewStore(rdb)
	publisher := events.NewRedisPublisher(rdb)

	roomHandler := handlers.NewRoomHandler(store, publisher, licenseStore)
	messageHandler := handlers.NewMessageHandler(store, publisher)
	licenseHandler := handlers.NewLicenseHandler(licenseStore, cfg.AdminToken)

	roomAuth := middleware.NewRoomAuth(store)
	rateLimit := middleware.NewRateLimit(store, cfg.RateLimit, cfg.RateWindow)

	r := mux.NewRouter()
	r.Use(middleware.CORS)

	api := r.PathPrefix("/api").Subrouter()

	// Public room endpoints; mutations share the rate limiter.
	api.Handle("/room/create", rateLimit(http.HandlerFunc(roomHandler.CreateRoom))).Methods("POST")
	api.Handle("/room/{roomId}", http.HandlerFunc(roomHandler.GetRoomInfo)).Methods("GET")
	api.Handle("/room/{roomId}/verify", rateLimit(http.HandlerFunc(roomHandler.VerifyPassword))).Methods("POST")
	api.Handle("/room/{roomId}/join", rateLimit(http.HandlerFunc(roomHandler.JoinRoom))).Methods("POST")

	// Participant endpoints; membership is re-verified on every request.
	api.Handle("/room/{roomId}/ttl", roomAuth(http.HandlerFunc(roomHandler.GetTTL))).Methods("GET")
	api.Handle("/room/{roomId}", roomAuth(http.HandlerFunc(roomHandler.DestroyRoom))).Methods("DELETE")
	api.Handle("/room/{roomId}/messages", roomAuth(rateLimit(http.HandlerFunc(messageHandler.PostMessage)))).Methods("POST")
	api.Handle("/room/{roomId}/messages", roomAuth(http.HandlerFunc(messageHandler.ListMessages))).Methods("GET")

	// License endpoints
	api.Handle("/license", http.HandlerFunc(licenseHandler.IssueLicense)).Methods("POST")
	api.Handle("/license/{key}", http.HandlerFunc(licenseHandler.ValidateLicense)).Methods("GET")
	api.Handle("/license/{key}/extend", http.HandlerFunc(licenseHandler.ExtendLicense)).Methods("POST")

	// Health check (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Database unavailable"))
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Redis unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	logrus.WithField("port", cfg.Port).Info("Room server starting")

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logrus.WithError(err).Fatal("Server failed to start")
	}
}
