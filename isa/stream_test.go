/*
 * Copyright 2022 ByteDance Inc.
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

package isa

import (
    `testing`

    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/require`
)

func opcodes(s *Stream) []OpCode {
    var ret []OpCode
    s.ForEach(func(_ Index, ins Instr) { ret = append(ret, ins.Op) })
    return ret
}

func TestStream_InsertDelete(t *testing.T) {
    s := NewStream()
    a := s.Append(RR(OP_LR, R1, R2))
    b := s.Append(RR(OP_AR, R1, R3))
    c := s.InsertBefore(b, RR(OP_LGR, R4, R5))
    d := s.InsertAfter(Nil, RR(OP_LTR, R6, R6))
    require.NoError(t, s.Verify())
    require.Equal(t, []OpCode { OP_LTR, OP_LR, OP_LGR, OP_AR }, opcodes(s))
    require.True(t, s.Before(d, a))
    require.True(t, s.Before(c, b))
    require.False(t, s.Before(b, c))

    /* deleted slots resume to their successor */
    s.Delete(c)
    require.False(t, s.Live(c))
    require.Equal(t, b, s.Resume(c))
    require.Equal(t, b, s.Next(c))
    require.Equal(t, 3, s.Len())
    require.NoError(t, s.Verify())
    require.Panics(t, func() { s.Delete(c) })

    /* deleting the tail */
    s.Delete(b)
    require.Equal(t, Nil, s.Resume(b))
    require.Equal(t, a, s.Tail())
    require.NoError(t, s.Verify())
}

func TestStream_Replace(t *testing.T) {
    s := NewStream()
    a := s.Append(RR(OP_LR, R1, R2))
    b := s.Append(RR(OP_AR, R1, R3))
    n := s.Replace(a, RR(OP_LGR, R1, R2))
    require.NotEqual(t, a, n)
    require.Equal(t, n, s.Resume(a))
    require.Equal(t, n, s.Head())
    require.Equal(t, b, s.Next(n))
    require.NoError(t, s.Verify())
}

func TestStream_Reclaim(t *testing.T) {
    s := NewStream()
    a := s.Append(RR(OP_LR, R1, R2))
    s.Append(RR(OP_AR, R1, R3))
    s.Delete(a)
    s.Reclaim()
    n := s.Append(RR(OP_LGR, R4, R5))
    require.Equal(t, a, n)
    require.Equal(t, []OpCode { OP_AR, OP_LGR }, opcodes(s))
    require.NoError(t, s.Verify())
}

func TestStream_Renumber(t *testing.T) {
    s := NewStream()
    a := s.Append(RR(OP_LR, R1, R2))
    b := s.Append(RR(OP_LR, R3, R4))
    for i := 0; i < 64; i++ {
        b = s.InsertBefore(b, RR(OP_LR, R5, R6))
    }
    require.NoError(t, s.Verify())
    require.True(t, s.Before(a, b))
    require.Equal(t, 66, s.Len())
}

func TestStream_Labels(t *testing.T) {
    b := NewBuilder()
    j := b.BRC(COND_BE, "exit")
    b.LR(R1, R2)
    l := b.Label("exit")
    s := b.Build()
    lb := s.At(j).Lb
    require.Equal(t, l, s.Target(lb))
    require.Equal(t, "exit", s.LabelName(lb))

    /* deleting the label unbinds it */
    s.Delete(l)
    require.Equal(t, Nil, s.Target(lb))
    require.Error(t, s.Verify())
}

func TestStream_Clone(t *testing.T) {
    b := NewBuilder()
    b.BRC(COND_BE, "L1")
    b.LR(R1, R2)
    b.With(R6)
    b.Label("L1")
    s := b.Build()
    c := s.Clone()
    require.NoError(t, c.Verify())
    require.Equal(t, s.Disassemble(), c.Disassemble(), spew.Sdump(c.Instrs()))

    /* the clone is independent */
    c.Delete(c.Head())
    require.Equal(t, 3, s.Len())
    require.Equal(t, 2, c.Len())
}

func TestBuilder_Unresolved(t *testing.T) {
    b := NewBuilder()
    b.BRC(COND_BE, "nowhere")
    require.Equal(t, []string { "nowhere" }, b.Pending())
    require.PanicsWithValue(t, "labels are not fully resolved: nowhere", func() { b.Build() })
}

func TestBuilder_Duplicated(t *testing.T) {
    b := NewBuilder()
    b.Label("L1")
    require.Panics(t, func() { b.Label("L1") })
}

func TestBuilder_Placeholder(t *testing.T) {
    b := NewBuilder()
    b.Next()
    b.BRC(COND_BRC, "loop_{n}")
    b.Label("loop_{n}")
    s := b.Build()
    _, ok := s.LookupLabel("loop_1")
    require.True(t, ok)
}

func TestInstr_OperandAccess(t *testing.T) {
    ins := RR(OP_AR, R1, R2)
    require.Equal(t, R2, ins.Reg(2))
    require.PanicsWithValue(t, "isa: AR does not carry operand imm", func() { ins.Immediate() })
    require.Panics(t, func() { ins.Reg(3) })
    require.Panics(t, func() { ins.SetCondition(COND_BE) })
    require.Panics(t, func() { RI(OP_AR, R1, 0) })
}

func TestInstr_UsesDefs(t *testing.T) {
    dr := RR(OP_DR, R4, R9)
    require.True(t, dr.Defs(R5))
    require.True(t, dr.Uses(R5))
    require.Equal(t, []Reg { R4, R5 }, dr.DefRegs())

    /* load multiple wraps around */
    lm := RS(OP_LM, R14, R2, Ptr(R15, 0))
    require.True(t, lm.Defs(R0))
    require.False(t, lm.Defs(R3))
    require.True(t, lm.Uses(R15))
    require.Equal(t, []Reg { R14, R15, R0, R1, R2 }, lm.DefRegs())

    /* stores define nothing */
    st := RX(OP_ST, R1, Idx(R2, R3, 8))
    require.False(t, st.Defs(R1))
    require.True(t, st.Uses(R3))
    require.Nil(t, st.DefRegs())
}

func TestInstr_ReadsCC(t *testing.T) {
    require.False(t, Instr { Op: OP_BRC, Cc: COND_BRC }.ReadsCC())
    require.False(t, Instr { Op: OP_BRC, Cc: COND_NOP }.ReadsCC())
    require.True(t, Instr { Op: OP_BRC, Cc: COND_BE }.ReadsCC())
    require.True(t, Instr { Op: OP_BRC, Cc: COND_BRC }.IsUnconditional())
    require.False(t, Instr { Op: OP_CRJ, Cc: COND_BRC }.IsUnconditional())
}

func TestDisasm_Format(t *testing.T) {
    b := NewBuilder()
    b.Label("L1")
    b.RRR(OP_ARK, R1, R2, R3)
    b.RX(OP_L, R1, Idx(R2, R3, 8))
    b.CRJ(OP_CRJ, R1, R2, COND_BL, "L1")
    b.LOC(OP_LOCR, R1, R2, COND_BE)
    b.BRC(COND_BRC, "L1")
    b.With(R6, R7)
    b.LR(R1, R1)
    b.Flag(F_fill)
    s := b.Build()
    require.Equal(t, "" +
        "L1:\n" +
        "    ARK     r1,r2,r3\n" +
        "    L       r1,8(r3,r2)\n" +
        "    CRJ     r1,r2,L,L1\n" +
        "    LOCR    r1,r2,E\n" +
        "    BRC     A,L1 {r6,r7}\n" +
        "    LR      r1,r1 !fill\n",
        s.Disassemble(),
    )
}
