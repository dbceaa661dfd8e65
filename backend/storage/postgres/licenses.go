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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/privchat/privchat/backend/models"
	"github.com/privchat/privchat/backend/storage"
)

// SaveLicense inserts or refreshes a license record.
func (s *Store) SaveLicense(ctx context.Context, license models.License) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO licenses (license_key, email, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (license_key) DO UPDATE
		SET email = $2, status = $3, expires_at = $5`,
		license.Key, license.Email, license.Status, license.CreatedAt, license.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save license: %w", err)
	}
	return nil
}

// GetLicense looks a license up by key.
func (s *Store) GetLicense(ctx context.Context, key string) (*models.License, error) {
	license := &models.License{}
	err := s.db.QueryRowContext(ctx, `
		SELECT license_key, email, status, created_at, expires_at
		FROM licenses WHERE license_key = $1`, key).Scan(
		&license.Key, &license.Email, &license.Status, &license.CreatedAt, &license.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get license: %w", err)
	}
	return license, nil
}

// GetLicenseByEmail returns the most recent license issued to an email.
func (s *Store) GetLicenseByEmail(ctx context.Context, email string) (*models.License, error) {
	license := &models.License{}
	err := s.db.QueryRowContext(ctx, `
		SELECT license_key, email, status, created_at, expires_at
		FROM licenses WHERE email = $1
		ORDER BY created_at DESC LIMIT 1`, email).Scan(
		&license.Key, &license.Email, &license.Status, &license.CreatedAt, &license.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get license by email: %w", err)
	}
	return license, nil
}

// ExtendLicense adds days to a license, counting from now or from the current
// expiry, whichever is later, and reactivates it.
func (s *Store) ExtendLicense(ctx context.Context, key string, days int) error {
	license, err := s.GetLicense(ctx, key)
	if err != nil {
		return err
	}

	base := license.ExpiresAt
	if now := time.Now(); base.Before(now) {
		base = now
	}
	expiresAt := base.Add(time.Duration(days) * 24 * time.Hour)

	_, err = s.db.ExecContext(ctx, `
		UPDATE licenses SET expires_at = $2, status = $3
		WHERE license_key = $1`, key, expiresAt, models.LicenseActive)
	if err != nil {
		return fmt.Errorf("failed to extend license: %w", err)
	}
	return nil
}

// ValidateLicense is the boolean capability check the room core consumes.
// An unknown key is simply invalid, not an error.
func (s *Store) ValidateLicense(ctx context.Context, key string) (bool, error) {
	license, err := s.GetLicense(ctx, key)
	if err == storage.ErrLicenseNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return license.Valid(time.Now()), nil
}
