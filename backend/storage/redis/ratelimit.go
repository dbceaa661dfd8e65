// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"fmt"
	"time"
)

// IncrementRequestCount implements the fixed-window counter: the first
// request in a window sets the window's expiry, later requests only
// increment. The counter resets implicitly when the key expires.
func (s *Store) IncrementRequestCount(ctx context.Context, identity string, window time.Duration) (int64, time.Duration, error) {
	key := ratelimitPrefix + identity

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, window, fmt.Errorf("failed to set rate window: %w", err)
		}
		return count, window, nil
	}

	reset, err := s.rdb.TTL(ctx, key).Result()
	if err != nil || reset < 0 {
		// A counter without expiry would never reset; report a full window so
		// callers still hand out a usable resetTime.
		reset = window
	}
	return count, reset, nil
}
