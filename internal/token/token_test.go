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

package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/securetask/internal/authz"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := NewIssuer(testSecret, "securetask-test", time.Hour)
	require.NoError(t, err)
	return i
}

func testIdentity() authz.Identity {
	return authz.Identity{
		Subject:        "user-1",
		Email:          "owner@example.com",
		Role:           authz.RoleOwner,
		OrganizationID: "org-1",
	}
}

func signRaw(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

// TestPurpose: Validates that an issued token round-trips into the same identity.
// Scope: Unit Test
// Security: Identity integrity across requests
// Expected: Verify returns an identity equal to the one issued.
// Test Case ID: TOK-01
func TestIssuer_IssueVerify(t *testing.T) {
	i := newTestIssuer(t)
	want := testIdentity()

	raw, exp, err := i.Issue(want)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	got, err := i.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

// TestPurpose: Validates that issuing refuses incomplete identities.
// Scope: Unit Test
// Expected: ErrInvalidIdentity for an unknown role.
// Test Case ID: TOK-02
func TestIssuer_IssueRejectsInvalidIdentity(t *testing.T) {
	i := newTestIssuer(t)
	id := testIdentity()
	id.Role = "Root"

	_, _, err := i.Issue(id)
	assert.ErrorIs(t, err, authz.ErrInvalidIdentity)
}

// TestPurpose: Validates that malformed, tampered and foreign tokens are rejected.
// Scope: Unit Test
// Security: Token forgery (CWE-347)
// Expected: ErrInvalidToken in every case.
// Test Case ID: TOK-03
func TestIssuer_VerifyRejects(t *testing.T) {
	i := newTestIssuer(t)
	now := time.Now().UTC()
	base := func() Claims {
		return Claims{
			Email:          "owner@example.com",
			Role:           "Owner",
			OrganizationID: "org-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "securetask-test",
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	valid, _, err := i.Issue(testIdentity())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered signature", valid[:len(valid)-2] + "xx"},
		{"wrong secret", signRaw(t, jwt.SigningMethodHS256, []byte("other-secret"), base())},
		{"alg none", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodNone, base()).SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return s
		}()},
		{"wrong issuer", func() string {
			c := base()
			c.Issuer = "someone-else"
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"expired", func() string {
			c := base()
			c.IssuedAt = jwt.NewNumericDate(now.Add(-2 * time.Hour))
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"issued in future", func() string {
			c := base()
			c.IssuedAt = jwt.NewNumericDate(now.Add(time.Minute))
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"missing subject", func() string {
			c := base()
			c.Subject = ""
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"missing organization", func() string {
			c := base()
			c.OrganizationID = ""
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"unknown role", func() string {
			c := base()
			c.Role = "SuperAdmin"
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"lowercase role", func() string {
			c := base()
			c.Role = "owner"
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"missing expiry", func() string {
			c := base()
			c.ExpiresAt = nil
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := i.Verify(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, id)
		})
	}
}

// TestPurpose: Validates that tokens expire according to the configured ttl.
// Scope: Unit Test
// Expected: A token verified after its ttl is rejected.
// Test Case ID: TOK-04
func TestIssuer_Expiry(t *testing.T) {
	i := newTestIssuer(t)
	start := time.Now()
	i.now = func() time.Time { return start }

	raw, _, err := i.Issue(testIdentity())
	require.NoError(t, err)

	i.now = func() time.Time { return start.Add(59 * time.Minute) }
	_, err = i.Verify(raw)
	require.NoError(t, err)

	i.now = func() time.Time { return start.Add(61 * time.Minute) }
	_, err = i.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_Validation(t *testing.T) {
	_, err := NewIssuer("", "x", time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer("secret", "x", 0)
	assert.Error(t, err)

	i, err := NewIssuer("secret", "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "securetask", i.issuer)
}
