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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTTTL)
	assert.Equal(t, RateLimitBackendMemory, cfg.RateLimit.Backend)
	assert.False(t, cfg.Tenant.ConcealCrossAccess)
	assert.Empty(t, cfg.Audit.LogPath)
}

// TestPurpose: Validates that the server refuses to start without required secrets.
// Scope: Unit Test
// Security: Secure defaults (CWE-1188)
// Expected: Missing JWT_SECRET, DB_PASSWORD for postgres, or REDIS_ADDR for redis fail validation.
// Test Case ID: CFG-01
func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing jwt secret", map[string]string{"STORE_DRIVER": "memory"}, "JWT_SECRET"},
		{"postgres without password", map[string]string{"JWT_SECRET": "x"}, "DB_PASSWORD"},
		{"redis without addr", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "memory", "RATELIMIT_BACKEND": "redis"}, "REDIS_ADDR"},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("STORE_DRIVER", "")
			t.Setenv("DB_PASSWORD", "")
			t.Setenv("RATELIMIT_BACKEND", "")
			t.Setenv("REDIS_ADDR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("RATELIMIT_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATELIMIT_RPS", "2.5")
	t.Setenv("TENANT_CONCEAL_CROSS_ACCESS", "true")
	t.Setenv("JWT_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.Tenant.ConcealCrossAccess)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTTTL)
}

func TestLoadDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "")
	_, err := LoadDatabase()
	require.Error(t, err)

	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db.internal")
	db, err := LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, 25, db.MaxOpenConns)
}
