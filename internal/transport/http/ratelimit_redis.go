// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisAllowScript counts hits in a fixed window that starts on the first hit.
var redisAllowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared by every replica.
// A window admits burst requests and lasts burst/rps seconds, so the
// long-run rate matches the in-memory limiter.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter on client.
func NewRedisLimiter(client *redis.Client, rps float64, burst int) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if rps <= 0 || burst <= 0 {
		return nil, errors.New("rps and burst must be positive")
	}
	window := time.Duration(math.Ceil(float64(burst) / rps * float64(time.Second)))
	if window < time.Millisecond {
		window = time.Millisecond
	}
	return &RedisLimiter{
		client: client,
		prefix: "securetask:ratelimit:",
		limit:  burst,
		window: window,
	}, nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	current, err := redisAllowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return current <= int64(l.limit), nil
}

// Window reports the fixed window length.
func (l *RedisLimiter) Window() time.Duration {
	return l.window
}
