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
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

const defaultLicenseDays = 30

// LicenseHandler manages premium license records. Issuing and extending are
// gated by a shared admin token; payment processing stays outside this
// service and calls in through these endpoints.
type LicenseHandler struct {
	store      storage.LicenseStore
	adminToken string
}

func NewLicenseHandler(store storage.LicenseStore, adminToken string) *LicenseHandler {
	return &LicenseHandler{store: store, adminToken: adminToken}
}

// IssueLicense mints a PRIV-XXXX-XXXX-XXXX key for an email.
func (h *LicenseHandler) IssueLicense(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Admin token required")
		return
	}

	var req struct {
		Email string `json:"email"`
		Days  int    `json:"days,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "validation", "An email is required")
		return
	}
	if req.Days <= 0 {
		req.Days = defaultLicenseDays
	}

	key, err := models.GenerateLicenseKey()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate license key")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to issue license")
		return
	}

	now := time.Now()
	license := models.License{
		Key:       key,
		Email:     req.Email,
		Status:    models.LicenseActive,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(req.Days) * 24 * time.Hour),
	}

	if err := h.store.SaveLicense(r.Context(), license); err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("Failed to save license")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to issue license")
		return
	}

	logrus.WithField("email", req.Email).Info("License issued")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"licenseKey": license.Key,
		"expiresAt":  license.ExpiresAt.UnixMilli(),
	})
}

// ValidateLicense reports whether a key currently grants premium parameters.
func (h *LicenseHandler) ValidateLicense(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	license, err := h.store.GetLicense(r.Context(), key)
	if errors.Is(err, storage.ErrLicenseNotFound) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"valid": false})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to look up license")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to validate license")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"valid":     license.Valid(time.Now()),
		"status":    license.Status,
		"expiresAt": license.ExpiresAt.UnixMilli(),
	})
}

// ExtendLicense renews a license by a number of days.
func (h *LicenseHandler) ExtendLicense(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Admin token required")
		return
	}

	key := mux.Vars(r)["key"]

	var req struct {
		Days int `json:"days,omitempty"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Days <= 0 {
		req.Days = defaultLicenseDays
	}

	err := h.store.ExtendLicense(r.Context(), key, req.Days)
	if errors.Is(err, storage.ErrLicenseNotFound) {
		writeError(w, http.StatusNotFound, "license-not-found", "Unknown license key")
		return
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to extend license")
		writeError(w, http.StatusInternalServerError, "server-error", "Failed to extend license")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "extended"})
}

func (h *LicenseHandler) isAdmin(r *http.Request) bool {
	if h.adminToken == "" {
		return false
	}
	presented := r.Header.Get("X-Admin-Token")
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminToken)) == 1
}
