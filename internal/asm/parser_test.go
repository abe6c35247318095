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

package asm

import (
    `testing`

    `github.com/stretchr/testify/require`

    `github.com/cloudwego/zpeep/isa`
)

const _TestProgram = `
# entry
    BBSTART !catch
    LARL    r6,$litpool !litpool
L1:
    LR      r1,r2
    LTR     r2,r2
    AHIK    r3,r4,-8
    L       r3,8(r4,r5)
    ST      r3,0(r15)
    SLL     r3,2
    SLLK    r3,r4,0(r2)
    LM      r6,r8,16(r15)
    CRJ     r1,r2,L,L1
    CIJ     r1,10,NE,L2
    CRB     r1,r2,0(r3),H
    CLRT    r1,r2,E
    LOCR    r1,r2,M10
    BRC     E,L1 {r6,r7}
    BCR     A,r14
    BRASL   r14,callee
    LR      r1,r1 !fill
L2:
    BBEND
`

func TestParser_RoundTrip(t *testing.T) {
    s, err := Assemble(_TestProgram)
    require.NoError(t, err)
    require.NoError(t, s.Verify())
    r, err := Assemble(s.Disassemble())
    require.NoError(t, err)
    require.Equal(t, s.Disassemble(), r.Disassemble())
}

func TestParser_Operands(t *testing.T) {
    s, err := Assemble(_TestProgram)
    require.NoError(t, err)
    ins := s.Instrs()
    require.Equal(t, isa.OP_BBSTART, ins[0].Op)
    require.True(t, ins[0].Is(isa.F_catch))
    require.Equal(t, isa.LiteralPoolSymbol, ins[1].Sym)
    require.Equal(t, isa.RRI(isa.OP_AHIK, isa.R3, isa.R4, -8), ins[5])
    require.Equal(t, isa.RX(isa.OP_L, isa.R3, isa.Idx(isa.R5, isa.R4, 8)), ins[6])
    require.Equal(t, isa.RX(isa.OP_SLL, isa.R3, isa.Disp(2)), ins[8])
    require.Equal(t, isa.RS(isa.OP_LM, isa.R6, isa.R8, isa.Ptr(isa.R15, 16)), ins[10])
    require.Equal(t, isa.COND_BL, ins[11].Cc)
    require.Equal(t, int64(10), ins[12].Imm)
    require.Equal(t, isa.Ptr(isa.R3, 0), ins[13].Mem)
    require.Equal(t, isa.COND_BE.Mask(), ins[14].M3)
    require.Equal(t, isa.COND_MASK10.Mask(), ins[15].M3)
    require.Equal(t, []isa.Reg { isa.R6, isa.R7 }, ins[16].Deps)
    require.Equal(t, isa.R14, ins[17].R2)
    require.Equal(t, "callee", ins[18].Sym)
    require.True(t, ins[19].Is(isa.F_fill))
}

func TestParser_VirtualRegisters(t *testing.T) {
    s, err := Assemble("LR vr1,f2")
    require.NoError(t, err)
    ins := s.At(s.Head())
    require.Equal(t, isa.MakeVirtual(isa.K_gpr, 1), ins.R1)
    require.Equal(t, isa.F2, ins.R2)
}

func TestParser_Errors(t *testing.T) {
    for _, v := range []struct {
        src string
        err string
    } {
        { "FOO r1"                , "asm: line 1: unknown instruction \"FOO\"" },
        { "LR r1"                 , "asm: line 1: LR: missing r2 operand" },
        { "LR r1,r2,r3"           , "asm: line 1: LR: too many operands" },
        { "LR r1,r16"             , "asm: line 1: invalid register \"r16\"" },
        { "LHI r1,x"              , "asm: line 1: invalid immediate \"x\"" },
        { "BRC XX,L1"             , "asm: line 1: invalid condition \"XX\"" },
        { "LR r1,r2 !nope"        , "asm: line 1: unknown instruction flag \"!nope\"" },
        { "BRC A,L1 {r1"          , "asm: line 1: unterminated dependency list" },
        { "L r1,8(r2"             , "asm: line 1: invalid memory operand \"8(r2\"" },
        { "L1:\nL1:"              , "asm: line 2: label \"L1\" has already been defined at line 1" },
        { "LR r1,r2\nBRC E,nowhere", "asm: line 2: undefined label \"nowhere\"" },
    } {
        _, err := Assemble(v.src)
        require.EqualError(t, err, v.err, v.src)
    }
}
