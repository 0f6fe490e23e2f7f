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

package identity

import "testing"

func BenchmarkPasswordHasher_Hash(b *testing.B) {
	hasher := NewPasswordHasher(64*1024, 1, 4, 16, 32)
	password := "correct-horse-battery-staple"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := hasher.Hash(password); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPasswordHasher_Verify(b *testing.B) {
	hasher := NewPasswordHasher(64*1024, 1, 4, 16, 32)
	password := "correct-horse-battery-staple"
	hash, _ := hasher.Hash(password)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		valid, err := hasher.Verify(password, hash)
		if err != nil || !valid {
			b.Fatalf("verify failed: %v", err)
		}
	}
}
