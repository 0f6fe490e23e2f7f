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

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracer_Disabled(t *testing.T) {
	tr, err := New(context.Background(), Config{Enabled: false, ServiceName: "securetask"})
	require.NoError(t, err)

	ctx, span := tr.StartAuthorization(context.Background(), "task.delete", "Admin", "org-a")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() {
		EndAuthorization(span, "insufficient_role", errors.New("denied"))
	})
	assert.NoError(t, tr.Shutdown(context.Background()))
}
