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
    `fmt`
    `strconv`
)

// MemRef is a D(X,B) memory reference.
type MemRef struct {
    Base  Reg
    Index Reg
    Disp  int32
}

func (self MemRef) Uses(r Reg) bool {
    return r.Valid() && (self.Base == r || self.Index == r)
}

func (self MemRef) String() string {
    d := strconv.Itoa(int(self.Disp))

    /* select the addressing form */
    switch {
        case self.Index.Valid() : return d + "(" + self.Index.String() + "," + self.Base.String() + ")"
        case self.Base.Valid()  : return d + "(" + self.Base.String() + ")"
        default                 : return d
    }
}

// Label is a symbolic branch target, resolved by the Stream it belongs to.
// The zero Label refers to nothing.
type Label uint32

// LiteralPoolSymbol is the symbol LARL refers to when materializing the
// address of the literal pool.
const LiteralPoolSymbol = "$litpool"

type Flags uint8

const (
    F_catch   Flags = 1 << iota     // block start of a catch block
    F_fill                          // redundant load that breaks a pipeline hazard
    F_litpool                       // materializes the literal pool address
)

// Instr is a single instruction record. Which of the operand fields are
// meaningful is decided by the shape of the opcode; the checked accessors
// panic when asked for a slot the shape does not carry.
type Instr struct {
    Op    OpCode
    R1    Reg
    R2    Reg
    R3    Reg
    Imm   int64
    Mem   MemRef
    Cc    Cond
    M3    uint8
    Lb    Label
    Sym   string
    Flags Flags
    Deps  []Reg
}

func (self Instr) check(s Shape, slot string) {
    if !self.Op.Has(s) {
        panic(fmt.Sprintf("isa: %s does not carry operand %s", self.Op, slot))
    }
}

func regslot(n int) Shape {
    switch n {
        case 1  : return S_r1
        case 2  : return S_r2
        case 3  : return S_r3
        default : panic("isa: invalid register operand index " + strconv.Itoa(n))
    }
}

// Reg returns register operand n (1, 2 or 3).
func (self Instr) Reg(n int) Reg {
    self.check(regslot(n), "r" + strconv.Itoa(n))

    /* select the operand */
    switch n {
        case 1  : return self.R1
        case 2  : return self.R2
        default : return self.R3
    }
}

// SetReg replaces register operand n (1, 2 or 3).
func (self *Instr) SetReg(n int, r Reg) {
    self.check(regslot(n), "r" + strconv.Itoa(n))

    /* update the operand */
    switch n {
        case 1  : self.R1 = r
        case 2  : self.R2 = r
        default : self.R3 = r
    }
}

func (self Instr) Immediate() int64 {
    self.check(S_imm, "imm")
    return self.Imm
}

func (self Instr) Memory() MemRef {
    self.check(S_mem, "mem")
    return self.Mem
}

func (self Instr) Condition() Cond {
    self.check(S_cond, "cond")
    return self.Cc
}

func (self *Instr) SetCondition(cc Cond) {
    self.check(S_cond, "cond")
    self.Cc = cc
}

func (self Instr) Mask() uint8 {
    self.check(S_mask, "mask")
    return self.M3
}

func (self *Instr) SetMask(m uint8) {
    self.check(S_mask, "mask")
    self.M3 = m & 0x0f
}

func (self Instr) Target() Label {
    self.check(S_label, "label")
    return self.Lb
}

func (self *Instr) SetTarget(lb Label) {
    self.check(S_label, "label")
    self.Lb = lb
}

func (self Instr) Kind() Kind       { return self.Op.Kind() }
func (self Instr) IsLabel() bool    { return self.Op == OP_LABEL }
func (self Instr) IsReal() bool     { return !self.Op.Kind().Structural() }
func (self Instr) Is(f Flags) bool  { return self.Flags & f != 0 }

// ReadsCC reports whether the instruction observes the condition code. A
// branch with an all-or-nothing mask does not.
func (self Instr) ReadsCC() bool {
    if !self.Op.ReadsCC() {
        return false
    }

    /* check for the degenerated masks */
    switch {
        case self.Op.Has(S_cond) : return self.Cc != COND_BRC && self.Cc != COND_NOP
        case self.Op.Has(S_mask) : return self.M3 != 0x0f && self.M3 != 0
        default                  : return true
    }
}

// IsUnconditional reports whether the instruction is an always-taken branch.
func (self Instr) IsUnconditional() bool {
    return self.Op.IsBranch() && !self.Op.IsCompare() && self.Op.Has(S_cond) && self.Cc == COND_BRC
}

func (self Instr) multiple() bool {
    return self.Op.Shape() == _S_lm
}

func inrange(lo Reg, hi Reg, r Reg) bool {
    if lo.Kind() != r.Kind() || lo.Virtual() != r.Virtual() {
        return false
    } else if n, l, h := r.Num(), lo.Num(), hi.Num(); l <= h {
        return n >= l && n <= h
    } else {
        return n >= l || n <= h
    }
}

// Uses reports whether r is referenced anywhere by the instruction, as a
// source, as a target or as part of a memory reference.
func (self Instr) Uses(r Reg) bool {
    sh := self.Op.Shape()
    dm := self.Op.Info().Defs

    /* invalid registers are never used */
    if !r.Valid() {
        return false
    }

    /* register ranges of load / store multiple */
    if self.multiple() && inrange(self.R1, self.R3, r) {
        return true
    }

    /* first operand, possibly an even-odd pair */
    if sh & S_r1 != 0 && (self.R1 == r || (dm == D_pair && self.R1.Pair() == r)) {
        return true
    }

    /* other operands */
    switch {
        case sh & S_r2  != 0 && self.R2 == r   : return true
        case sh & S_r3  != 0 && self.R3 == r   : return true
        case sh & S_mem != 0 && self.Mem.Uses(r) : return true
        default                                : return false
    }
}

// Defs reports whether r is written by the instruction.
func (self Instr) Defs(r Reg) bool {
    if !r.Valid() {
        return false
    }

    /* check by definition mode */
    switch self.Op.Info().Defs {
        case D_r1    : return self.R1 == r
        case D_pair  : return self.R1 == r || self.R1.Pair() == r
        case D_range : return inrange(self.R1, self.R3, r)
        default      : return false
    }
}

// DefRegs returns every register written by the instruction.
func (self Instr) DefRegs() []Reg {
    switch self.Op.Info().Defs {
        case D_r1   : return []Reg { self.R1 }
        case D_pair : return []Reg { self.R1, self.R1.Pair() }
        case D_none : return nil
    }

    /* load multiple, the range wraps around */
    n := (self.R3.Num() - self.R1.Num()) & 15
    r := make([]Reg, 0, n + 1)

    /* expand the range */
    for i := 0; i <= n; i++ {
        r = append(r, self.R1.Offset(i))
    }
    return r
}

// MatchesTarget reports whether r is the first (target) operand.
func (self Instr) MatchesTarget(r Reg) bool {
    if !r.Valid() || !self.Op.Has(S_r1) {
        return false
    } else {
        return self.R1 == r || (self.Op.Info().Defs == D_pair && self.R1.Pair() == r)
    }
}

// Clone returns a deep copy of the instruction.
func (self Instr) Clone() Instr {
    if self.Deps != nil {
        self.Deps = append([]Reg(nil), self.Deps...)
    }
    return self
}

func (self Instr) String() string {
    return format(self, func(lb Label) string {
        return "L#" + strconv.Itoa(int(lb))
    })
}
