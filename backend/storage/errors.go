// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package storage

import "errors"

var (
	// ErrRoomNotFound: the room's metadata record is absent, either because it
	// never existed or because it expired or was destroyed.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull: the participant set is at capacity.
	ErrRoomFull = errors.New("room full")

	// ErrLicenseNotFound: no license record for the given key or email.
	ErrLicenseNotFound = errors.New("license not found")
)
