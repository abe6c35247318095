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

package emu

import (
    `github.com/cockroachdb/errors`

    `github.com/cloudwego/zpeep/isa`
)

type _AluOp uint8

const (
    _ALU_add _AluOp = iota
    _ALU_addl
    _ALU_sub
    _ALU_subl
    _ALU_and
    _ALU_or
    _ALU_xor
)

var _AluTab = map[isa.OpCode]_AluOp {
    isa.OP_AHI   : _ALU_add,
    isa.OP_AGHI  : _ALU_add,
    isa.OP_AR    : _ALU_add,
    isa.OP_AGR   : _ALU_add,
    isa.OP_ARK   : _ALU_add,
    isa.OP_AGRK  : _ALU_add,
    isa.OP_AHIK  : _ALU_add,
    isa.OP_AGHIK : _ALU_add,
    isa.OP_ALR   : _ALU_addl,
    isa.OP_ALGR  : _ALU_addl,
    isa.OP_ALRK  : _ALU_addl,
    isa.OP_ALGRK : _ALU_addl,
    isa.OP_SR    : _ALU_sub,
    isa.OP_SGR   : _ALU_sub,
    isa.OP_SRK   : _ALU_sub,
    isa.OP_SGRK  : _ALU_sub,
    isa.OP_SLR   : _ALU_subl,
    isa.OP_SLGR  : _ALU_subl,
    isa.OP_SLRK  : _ALU_subl,
    isa.OP_SLGRK : _ALU_subl,
    isa.OP_NR    : _ALU_and,
    isa.OP_NGR   : _ALU_and,
    isa.OP_NRK   : _ALU_and,
    isa.OP_NGRK  : _ALU_and,
    isa.OP_OR    : _ALU_or,
    isa.OP_OGR   : _ALU_or,
    isa.OP_ORK   : _ALU_or,
    isa.OP_OGRK  : _ALU_or,
    isa.OP_XR    : _ALU_xor,
    isa.OP_XGR   : _ALU_xor,
    isa.OP_XRK   : _ALU_xor,
    isa.OP_XGRK  : _ALU_xor,
}

// operands returns both sources of a two or three operand instruction.
func (self *Emulator) operands(p *isa.Instr) (uint64, uint64) {
    sh := p.Op.Shape()
    rd := self.Gr[p.R1.Num()]

    /* three-operand forms */
    if sh & isa.S_r3 != 0 {
        return self.Gr[p.R2.Num()], self.Gr[p.R3.Num()]
    }

    /* immediate forms */
    switch {
        case sh & isa.S_imm != 0 && sh & isa.S_r2 != 0 : return self.Gr[p.R2.Num()], uint64(p.Imm)
        case sh & isa.S_imm != 0                       : return rd, uint64(p.Imm)
        default                                        : return rd, self.Gr[p.R2.Num()]
    }
}

func (self *Emulator) emu_arith(p *isa.Instr) error {
    var cc uint8
    var rv uint64
    a, b := self.operands(p)

    /* 32-bit operations */
    if p.Op.Is32() {
        var v uint32
        v, cc = alu32(_AluTab[p.Op], uint32(a), uint32(b))
        rv = self.Gr[p.R1.Num()] &^ 0xffffffff | uint64(v)
    } else {
        rv, cc = alu64(_AluTab[p.Op], a, b)
    }

    /* update the result and condition code */
    self.CC = cc
    self.Gr[p.R1.Num()] = rv
    return nil
}

func logical(carry bool, zero bool) uint8 {
    cc := uint8(0)
    if carry { cc |= 2 }
    if !zero { cc |= 1 }
    return cc
}

func nonzero(v uint64) uint8 {
    if v == 0 {
        return 0
    } else {
        return 1
    }
}

func arith(v int64, overflow bool) uint8 {
    switch {
        case overflow : return 3
        case v == 0   : return 0
        case v < 0    : return 1
        default       : return 2
    }
}

func alu32(op _AluOp, a uint32, b uint32) (uint32, uint8) {
    switch op {
        case _ALU_add: {
            r := int32(a) + int32(b)
            return uint32(r), arith(int64(r), (int32(a) >= 0) == (int32(b) >= 0) && (r >= 0) != (int32(a) >= 0))
        }
        case _ALU_sub: {
            r := int32(a) - int32(b)
            return uint32(r), arith(int64(r), (int32(a) >= 0) != (int32(b) >= 0) && (r >= 0) != (int32(a) >= 0))
        }
        case _ALU_addl : r := a + b; return r, logical(r < a, r == 0)
        case _ALU_subl : r := a - b; return r, logical(a >= b, r == 0)
        case _ALU_and  : r := a & b; return r, nonzero(uint64(r))
        case _ALU_or   : r := a | b; return r, nonzero(uint64(r))
        default        : r := a ^ b; return r, nonzero(uint64(r))
    }
}

func alu64(op _AluOp, a uint64, b uint64) (uint64, uint8) {
    switch op {
        case _ALU_add: {
            r := int64(a) + int64(b)
            return uint64(r), arith(r, (int64(a) >= 0) == (int64(b) >= 0) && (r >= 0) != (int64(a) >= 0))
        }
        case _ALU_sub: {
            r := int64(a) - int64(b)
            return uint64(r), arith(r, (int64(a) >= 0) != (int64(b) >= 0) && (r >= 0) != (int64(a) >= 0))
        }
        case _ALU_addl : r := a + b; return r, logical(r < a, r == 0)
        case _ALU_subl : r := a - b; return r, logical(a >= b, r == 0)
        case _ALU_and  : r := a & b; return r, nonzero(r)
        case _ALU_or   : r := a | b; return r, nonzero(r)
        default        : r := a ^ b; return r, nonzero(r)
    }
}

func (self *Emulator) emu_shift(p *isa.Instr) error {
    src := p.R1
    amt := uint(self.Address(p.Mem) & 63)

    /* distinct-operand forms shift the second operand */
    if p.Op.Has(isa.S_r2) {
        src = p.R2
    }

    /* shift the low half */
    v := self.gr32(src)
    switch p.Op {
        case isa.OP_SLL, isa.OP_SLLK : self.set32(p.R1, shl32(v, amt))
        case isa.OP_SRL, isa.OP_SRLK : self.set32(p.R1, shr32(v, amt))
        case isa.OP_SRA, isa.OP_SRAK : self.shiftRight(p.R1, v, amt)
        default                      : self.shiftLeft(p.R1, v, amt)
    }
    return nil
}

func shl32(v uint32, n uint) uint32 {
    if n >= 32 {
        return 0
    } else {
        return v << n
    }
}

func shr32(v uint32, n uint) uint32 {
    if n >= 32 {
        return 0
    } else {
        return v >> n
    }
}

func (self *Emulator) shiftRight(r isa.Reg, v uint32, n uint) {
    if n > 31 {
        n = 31
    }
    x := int32(v) >> n
    self.set32(r, uint32(x))
    self.CC = arith(int64(x), false)
}

func (self *Emulator) shiftLeft(r isa.Reg, v uint32, n uint) {
    sb := v & 0x80000000
    nv := v & 0x7fffffff
    ov := false

    /* shift the numeric bits, every bit shifted out must equal the sign */
    for i := uint(0); i < n && i < 32; i++ {
        if (nv & 0x40000000 != 0) != (sb != 0) {
            ov = true
        }
        nv = (nv << 1) & 0x7fffffff
    }

    /* the sign bit stays */
    x := nv | sb
    self.set32(r, x)
    self.CC = arith(int64(int32(x)), ov)
}

func (self *Emulator) compare(p *isa.Instr) uint8 {
    a := self.Gr[p.R1.Num()]
    b := uint64(0)

    /* second operand */
    if p.Op.Has(isa.S_r2) {
        b = self.Gr[p.R2.Num()]
    } else {
        b = uint64(p.Imm)
    }

    /* compare by width and signedness */
    switch p.Op {
        case isa.OP_CR, isa.OP_CHI, isa.OP_CRJ, isa.OP_CIJ, isa.OP_CRB, isa.OP_CRT:
            return scmp(int64(int32(a)), int64(int32(b)))
        case isa.OP_CGR, isa.OP_CGHI, isa.OP_CGRJ, isa.OP_CGIJ, isa.OP_CGRB, isa.OP_CGRT:
            return scmp(int64(a), int64(b))
        case isa.OP_CLR, isa.OP_CLRJ, isa.OP_CLRB, isa.OP_CLRT:
            return ucmp(uint64(uint32(a)), uint64(uint32(b)))
        case isa.OP_CLIJ:
            return ucmp(uint64(uint32(a)), uint64(uint8(b)))
        case isa.OP_CLGIJ:
            return ucmp(a, uint64(uint8(b)))
        case isa.OP_CGFR:
            return scmp(int64(a), int64(int32(b)))
        case isa.OP_CLGFR:
            return ucmp(a, uint64(uint32(b)))
        case isa.OP_CHLR:
            return scmp(int64(int32(a >> 32)), int64(int32(b)))
        case isa.OP_CLHLR:
            return ucmp(a >> 32, uint64(uint32(b)))
        default:
            return ucmp(a, b)
    }
}

func scmp(a int64, b int64) uint8 {
    switch {
        case a == b : return 0
        case a < b  : return 1
        default     : return 2
    }
}

func ucmp(a uint64, b uint64) uint8 {
    switch {
        case a == b : return 0
        case a < b  : return 1
        default     : return 2
    }
}

func (self *Emulator) emu_cmp(p *isa.Instr) error {
    self.CC = self.compare(p)
    return nil
}

func (self *Emulator) emu_cmpjump(p *isa.Instr) error {
    cc := self.compare(p)
    cond := p.Cc

    /* RRF2 traps carry the condition in M3 */
    if p.Op.Has(isa.S_mask) {
        cond = isa.Cond(p.M3)
    }

    /* the condition code itself is not changed */
    switch {
        case !cond.Selects(cc)           : return nil
        case p.Op.IsExceptBranch()       : return self.trap()
        case p.Op.Has(isa.S_label)       : self.jump(p.Lb); return nil
        default                          : return errors.Wrap(ErrUnsupported, "branch to computed address")
    }
}
