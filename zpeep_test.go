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

package zpeep

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/zpeep/internal/emu"
	"github.com/cloudwego/zpeep/isa"
)

var (
	testRegs = []isa.Reg{isa.R1, isa.R2, isa.R3, isa.R4, isa.R5}
	testArch = []isa.Arch{isa.Z9, isa.Z10, isa.Z196, isa.Z16}
	testOps  = []isa.OpCode{isa.OP_AR, isa.OP_SR, isa.OP_ALR, isa.OP_SLR, isa.OP_NR, isa.OP_XR, isa.OP_AGR, isa.OP_SGR}
	testCmps = []isa.OpCode{isa.OP_CR, isa.OP_CLR, isa.OP_CGR}
	testBrcs = []isa.Cond{isa.COND_BE, isa.COND_BNE, isa.COND_BL, isa.COND_BH, isa.COND_BNH, isa.COND_BRC}
)

// programGenerator produces random straight-line programs with forward
// branches only, so every program terminates.
type programGenerator struct {
	f    *gofakeit.Faker
	b    *isa.Builder
	n    int
	open []string
}

func (self *programGenerator) reg() isa.Reg {
	return testRegs[self.f.Number(0, len(testRegs)-1)]
}

func (self *programGenerator) pair() (isa.Reg, isa.Reg) {
	a := self.reg()
	if self.f.Number(0, 3) == 0 {
		return a, a
	} else {
		return a, self.reg()
	}
}

func (self *programGenerator) cond() isa.Cond {
	return testBrcs[self.f.Number(0, len(testBrcs)-1)]
}

func (self *programGenerator) target() string {
	if len(self.open) == 0 || self.f.Bool() {
		self.n++
		self.open = append(self.open, fmt.Sprintf("L%d", self.n))
	}
	return self.open[self.f.Number(0, len(self.open)-1)]
}

func (self *programGenerator) place() {
	if len(self.open) != 0 {
		i := self.f.Number(0, len(self.open)-1)
		self.b.Label(self.open[i])
		self.open = append(self.open[:i], self.open[i+1:]...)
	}
}

func (self *programGenerator) step() {
	a, b := self.pair()
	switch self.f.Number(0, 19) {
	case 0, 1:
		self.b.LR(a, b)
	case 2:
		self.b.LGR(a, b)
	case 3:
		self.b.LTR(a, b)
	case 4:
		self.b.RR(isa.OP_LTGR, a, b)
	case 5:
		self.b.RI(isa.OP_LHI, a, int64(self.f.Number(-1, 3)))
	case 6:
		self.b.RI(isa.OP_CHI, a, 0)
	case 7, 8:
		self.b.RR(testOps[self.f.Number(0, len(testOps)-1)], a, b)
	case 9:
		self.b.RI(isa.OP_AHI, a, int64(self.f.Number(-8, 8)))
	case 10:
		self.b.RR(testCmps[self.f.Number(0, len(testCmps)-1)], a, b)
	case 11:
		self.b.RR(isa.OP_LCR, a, b)
	case 12:
		self.b.RX(isa.OP_SLL, a, isa.Disp(int32(self.f.Number(0, 3))))
	case 13:
		self.b.RX(isa.OP_L, a, isa.Ptr(isa.R15, int32(self.f.Number(0, 7)*8)))
	case 14:
		self.b.RX(isa.OP_ST, a, isa.Ptr(isa.R15, int32(self.f.Number(0, 7)*8)))
	case 15:
		self.b.RX(isa.OP_LA, a, isa.Ptr(b, int32(self.f.Number(0, 16))))
	case 16:
		self.b.BRC(self.cond(), self.target())
	case 17:
		self.b.CRJ(isa.OP_CRJ, a, b, self.cond(), self.target())
	case 18:
		self.b.LOC(isa.OP_LOCR, a, b, self.cond())
	default:
		self.place()
	}
}

func randomProgram(f *gofakeit.Faker) *isa.Stream {
	g := &programGenerator{f: f, b: isa.NewBuilder()}
	for i, n := 0, f.Number(4, 40); i < n; i++ {
		g.step()
	}
	for len(g.open) != 0 {
		g.place()
	}
	return g.b.Build()
}

func execute(t *testing.T, s *isa.Stream, regs [16]uint64) *emu.Emulator {
	e := emu.Load(s)
	e.Gr = regs
	require.NoError(t, e.Run(), s.Disassemble())
	return e
}

func TestOptimize_RandomEquivalence(t *testing.T) {
	total := 0
	for seed := int64(0); seed < 300; seed++ {
		for _, arch := range testArch {
			var regs [16]uint64
			f := gofakeit.New(seed)
			src := randomProgram(f)
			dst := src.Clone()

			/* random initial register values, r15 points to the stack */
			for i := range regs {
				regs[i] = f.Uint64()
			}
			regs[15] = 0x8000

			/* optimize until converged */
			ret := OptimizeN(dst, 8, WithArch(arch), EnableRules(ZeroLoadToXOR))
			require.NoError(t, dst.Verify())
			total += ret.Stats.Total()

			/* both programs must end up in the same state */
			msg := fmt.Sprintf("seed %d on %s\n%s\n=>\n%s", seed, arch, src.Disassemble(), dst.Disassemble())
			want := execute(t, src, regs)
			have := execute(t, dst, regs)
			require.Equal(t, want.Gr, have.Gr, msg)
			require.Equal(t, want.Mem, have.Mem, msg)
			require.Equal(t, want.Calls, have.Calls, msg)
			require.Equal(t, want.Trapped, have.Trapped, msg)
		}
	}
	require.NotZero(t, total)
}

func TestOptimize_Idempotent(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		s := randomProgram(gofakeit.New(seed))
		OptimizeN(s, 16)
		before := s.Disassemble()
		ret := Optimize(s)
		require.Zero(t, ret.Stats.Total(), "seed %d\n%s", seed, before)
		require.Equal(t, before, s.Disassemble())
	}
}

func selfMoves() *isa.Stream {
	b := isa.NewBuilder()
	b.LR(isa.R1, isa.R1)
	b.LR(isa.R2, isa.R2)
	b.LR(isa.R3, isa.R3)
	return b.Build()
}

func TestOptimize_Bisect(t *testing.T) {
	for n := 0; n <= 3; n++ {
		s := selfMoves()
		ret := OptimizeN(s, 4, WithBisect(n))
		require.Equal(t, n, ret.Stats.Get(MoveReduction))
		require.Equal(t, 3-n, s.Len())
	}
}

func TestOptimize_BisectComposesWithPermit(t *testing.T) {
	var seen []isa.Index
	s := selfMoves()
	ret := Optimize(s,
		WithPermit(func(_ string, at isa.Index) bool { seen = append(seen, at); return at != 0 }),
		WithBisect(1),
	)
	require.Equal(t, []isa.Index{0, 1, 2}, seen)
	require.Equal(t, 1, ret.Stats.Total())
	require.Equal(t, "    LR      r1,r1\n    LR      r3,r3\n", s.Disassemble())
}

func TestOptimize_Logger(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Optimize(selfMoves(), WithLogger(log), WithArch(isa.Z196))
	require.Contains(t, buf.String(), "removing redundant LR")
	require.Contains(t, buf.String(), "arch=z196")
}

func TestOptimize_DisableRules(t *testing.T) {
	s := selfMoves()
	ret := Optimize(s, DisableRules(MoveReduction))
	require.Zero(t, ret.Stats.Total())
	require.Equal(t, 3, s.Len())
}

func TestOptimizeN_Converges(t *testing.T) {
	b := isa.NewBuilder()
	b.BRC(isa.COND_BE, "a")
	b.Label("a")
	b.BRC(isa.COND_BRC, "b")
	b.Label("b")
	b.BRC(isa.COND_BRC, "c")
	b.Label("c")
	b.BRC(isa.COND_BRC, "d")
	b.Label("d")
	s := b.Build()
	ret := OptimizeN(s, 10)
	require.NotZero(t, ret.Stats.Get(BranchForwarding))
	require.Zero(t, Optimize(s).Stats.Total())
	require.Equal(t, "    BRC     E,d\n", s.Disassemble()[:len("    BRC     E,d\n")])
}

func TestOptions_Invalid(t *testing.T) {
	require.Panics(t, func() { WithArch(isa.ArchLatest + 1) })
	require.Panics(t, func() { DisableRules(Rule(100)) })
	require.Panics(t, func() { EnableRules(Rule(100)) })
	require.Panics(t, func() { WithBisect(-1) })
	require.Panics(t, func() { WithLogger(nil) })
	require.Panics(t, func() { WithLiteralPool(isa.F1, true, false) })
	require.Panics(t, func() { WithLiteralPool(isa.MakeVirtual(isa.K_gpr, 3), true, false) })
}

func TestParseRule(t *testing.T) {
	for r := Rule(0); r <= CatchLiteralPoolReload; r++ {
		v, err := ParseRule(r.String())
		require.NoError(t, err)
		require.Equal(t, r, v)
	}
	_, err := ParseRule("no-such-rule")
	require.EqualError(t, err, `unknown peephole rule "no-such-rule"`)
}
