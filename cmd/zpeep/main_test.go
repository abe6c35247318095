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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	cmd := command()
	out := bytes.NewBuffer(nil)
	errs := bytes.NewBuffer(nil)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(errs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errs.String(), err
}

func TestCommand_Stdin(t *testing.T) {
	out, _, err := execute(t, "LR r1,r1\nAR r2,r3\n")
	require.NoError(t, err)
	require.Equal(t, "    AR      r2,r3\n", out)
}

func TestCommand_File(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "in.s")
	require.NoError(t, os.WriteFile(fn, []byte("LR r1,r1\nAR r2,r3\n"), 0644))
	out, _, err := execute(t, "", "--dump", fn)
	require.NoError(t, err)
	require.Contains(t, out, "AR      r2,r3")
	require.True(t, strings.HasPrefix(out, "#1"))
}

func TestCommand_Flags(t *testing.T) {
	src := "LR r1,r2\nAR r1,r3\nLHI r4,0\nAR r5,r6\n"
	out, stderr, err := execute(t, src, "--arch", "z10", "--enable-zero-xor", "--stats", "--trace")
	require.NoError(t, err)
	require.Contains(t, out, "LR      r1,r2")
	require.Contains(t, out, "XR      r4,r4")
	require.Contains(t, stderr, "zero-load-to-xor=1")
	require.Contains(t, stderr, "arch=z10")
}

func TestCommand_Disable(t *testing.T) {
	out, _, err := execute(t, "LR r1,r1\n", "--disable", "move-reduction")
	require.NoError(t, err)
	require.Equal(t, "    LR      r1,r1\n", out)
	_, _, err = execute(t, "LR r1,r1\n", "--disable", "bogus")
	require.EqualError(t, err, `unknown peephole rule "bogus"`)
}

func TestCommand_Bisect(t *testing.T) {
	out, _, err := execute(t, "LR r1,r1\nLR r2,r2\n", "--bisect", "1")
	require.NoError(t, err)
	require.Equal(t, "    LR      r2,r2\n", out)
}

func TestCommand_LiteralPool(t *testing.T) {
	src := "BBSTART !catch\nAR r2,r3\n"
	out, _, err := execute(t, src, "--arch", "z9", "--zos", "--litpool", "r7")
	require.NoError(t, err)
	require.Contains(t, out, "LARL    r7,$litpool !litpool")
	_, _, err = execute(t, src, "--litpool", "r99")
	require.EqualError(t, err, `literal pool: invalid register "r99"`)
}

func TestCommand_Errors(t *testing.T) {
	_, _, err := execute(t, "FOO r1\n")
	require.Error(t, err)
	_, _, err = execute(t, "", "--arch", "z1")
	require.Error(t, err)
	_, _, err = execute(t, "", "--litpool", "f1")
	require.Error(t, err)
}
