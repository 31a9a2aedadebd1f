/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package opts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrDefault(t *testing.T) {
	t.Setenv("NIRGO_TEST_INT", "")
	assert.Equal(t, 7, parseOrDefault("NIRGO_TEST_INT", 7, 1))
	t.Setenv("NIRGO_TEST_INT", "0x10")
	assert.Equal(t, 16, parseOrDefault("NIRGO_TEST_INT", 7, 1))
	t.Setenv("NIRGO_TEST_INT", "0")
	assert.Equal(t, 0, parseOrDefault("NIRGO_TEST_INT", 7, 0))
	assert.Panics(t, func() { parseOrDefault("NIRGO_TEST_INT", 7, 1) })
	t.Setenv("NIRGO_TEST_INT", "many")
	assert.Panics(t, func() { parseOrDefault("NIRGO_TEST_INT", 7, 1) })
}

func TestParseBoolOrDefault(t *testing.T) {
	t.Setenv("NIRGO_TEST_BOOL", "")
	assert.True(t, parseBoolOrDefault("NIRGO_TEST_BOOL", true))
	t.Setenv("NIRGO_TEST_BOOL", "false")
	assert.False(t, parseBoolOrDefault("NIRGO_TEST_BOOL", true))
	t.Setenv("NIRGO_TEST_BOOL", "maybe")
	assert.Panics(t, func() { parseBoolOrDefault("NIRGO_TEST_BOOL", true) })
}

func TestOptions(t *testing.T) {
	o := GetDefaultOptions()
	require.GreaterOrEqual(t, o.MaxWorkers, 1)

	/* never more workers than jobs */
	o.MaxWorkers = 4
	assert.Equal(t, 3, o.Workers(3))
	assert.Equal(t, 4, o.Workers(30))
}
