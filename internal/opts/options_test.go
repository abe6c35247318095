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

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/zpeep/isa"
)

func TestRules_Names(t *testing.T) {
	for r := Rule(0); r < NumRules; r++ {
		v, err := ParseRule(r.String())
		require.NoError(t, err)
		require.Equal(t, r, v)
	}
	v, err := ParseRule("Move-Reduction")
	require.NoError(t, err)
	require.Equal(t, MoveReduction, v)
	require.Equal(t, "rule(100)", Rule(100).String())
}

func TestRuleSet(t *testing.T) {
	s := AllRules.Without(ZeroLoadToXOR, BranchForwarding)
	require.False(t, s.Has(ZeroLoadToXOR))
	require.False(t, s.Has(BranchForwarding))
	require.True(t, s.Has(MoveReduction))
	require.Equal(t, AllRules, s.With(ZeroLoadToXOR, BranchForwarding))
}

func TestDefaults(t *testing.T) {
	o := GetDefaultOptions()
	require.Equal(t, isa.ArchLatest, o.Target.Arch)
	require.False(t, o.Enabled(ZeroLoadToXOR))
	require.True(t, o.Enabled(CatchLiteralPoolReload))
	require.True(t, o.Preserved.Has(isa.R15))
	require.False(t, o.Preserved.Has(isa.R14))
	require.Equal(t, 20, o.MoveWindow)
}

func TestParseOrDefault(t *testing.T) {
	t.Setenv("ZPEEP_TEST_WINDOW", "")
	require.Equal(t, 5, parseOrDefault("ZPEEP_TEST_WINDOW", 5, 1))
	t.Setenv("ZPEEP_TEST_WINDOW", "0x10")
	require.Equal(t, 16, parseOrDefault("ZPEEP_TEST_WINDOW", 5, 1))
	t.Setenv("ZPEEP_TEST_WINDOW", "0")
	require.PanicsWithValue(t, "zpeep: value too small for ZPEEP_TEST_WINDOW", func() { parseOrDefault("ZPEEP_TEST_WINDOW", 5, 1) })
	t.Setenv("ZPEEP_TEST_WINDOW", "x")
	require.PanicsWithValue(t, "zpeep: invalid value for ZPEEP_TEST_WINDOW", func() { parseOrDefault("ZPEEP_TEST_WINDOW", 5, 1) })
}
