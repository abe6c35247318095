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
    `sort`
    `strconv`
    `strings`
)

func shaped(op OpCode, s Shape) Instr {
    if !op.Has(s) {
        panic("isa: " + op.String() + " is not of the requested shape")
    } else {
        return Instr { Op: op }
    }
}

// RR creates a register-register instruction.
func RR(op OpCode, r1 Reg, r2 Reg) Instr {
    ins := shaped(op, S_r1 | S_r2)
    ins.R1, ins.R2 = r1, r2
    return ins
}

// RRR creates a three-register instruction.
func RRR(op OpCode, r1 Reg, r2 Reg, r3 Reg) Instr {
    ins := shaped(op, S_r1 | S_r2 | S_r3)
    ins.R1, ins.R2, ins.R3 = r1, r2, r3
    return ins
}

// RI creates a register-immediate instruction.
func RI(op OpCode, r1 Reg, imm int64) Instr {
    ins := shaped(op, S_r1 | S_imm)
    ins.R1, ins.Imm = r1, imm
    return ins
}

// RRI creates a two-register instruction with an immediate.
func RRI(op OpCode, r1 Reg, r2 Reg, imm int64) Instr {
    ins := shaped(op, S_r1 | S_r2 | S_imm)
    ins.R1, ins.R2, ins.Imm = r1, r2, imm
    return ins
}

// RX creates an instruction with a register and a memory operand. This also
// covers shifts, whose shift amount is the D(B) operand.
func RX(op OpCode, r1 Reg, mem MemRef) Instr {
    ins := shaped(op, S_r1 | S_mem)
    ins.R1, ins.Mem = r1, mem
    return ins
}

// RRX creates an instruction with two registers and a memory operand.
func RRX(op OpCode, r1 Reg, r2 Reg, mem MemRef) Instr {
    ins := shaped(op, S_r1 | S_r2 | S_mem)
    ins.R1, ins.R2, ins.Mem = r1, r2, mem
    return ins
}

// RS creates a register range instruction (load / store multiple).
func RS(op OpCode, r1 Reg, r3 Reg, mem MemRef) Instr {
    ins := shaped(op, S_r1 | S_r3 | S_mem)
    ins.R1, ins.R3, ins.Mem = r1, r3, mem
    return ins
}

// Symbolic creates an instruction with a register and a symbol operand.
func Symbolic(op OpCode, r1 Reg, sym string) Instr {
    ins := shaped(op, S_r1 | S_sym)
    ins.R1, ins.Sym = r1, sym
    return ins
}

// Marker creates an operand-less instruction.
func Marker(op OpCode) Instr {
    return Instr { Op: op }
}

// Disp creates a displacement-only memory reference. Shifts by a constant
// amount use it as their shift operand.
func Disp(d int32) MemRef {
    return MemRef { Disp: d }
}

// Ptr creates a D(B) memory reference.
func Ptr(base Reg, disp int32) MemRef {
    return MemRef { Base: base, Disp: disp }
}

// Idx creates a D(X,B) memory reference.
func Idx(base Reg, index Reg, disp int32) MemRef {
    return MemRef { Base: base, Index: index, Disp: disp }
}

// Builder assembles a Stream. Labels are referred to by name and may be used
// before they are defined; Build panics if any of them is never placed.
type Builder struct {
    i     int
    s     *Stream
    refs  map[string]Index
    pends map[string][]Index
}

func NewBuilder() *Builder {
    return &Builder {
        s     : NewStream(),
        refs  : make(map[string]Index),
        pends : make(map[string][]Index),
    }
}

func (self *Builder) add(ins Instr) Index {
    return self.s.Append(ins)
}

func (self *Builder) ref(ins Instr, to string) Index {
    /* placeholder substitution */
    if strings.Contains(to, "{n}") {
        to = strings.ReplaceAll(to, "{n}", strconv.Itoa(self.i))
    }

    /* link to the label, forward references are pending until defined */
    ins.Lb = self.s.Label(to)
    p := self.add(ins)

    /* check for forward jumps */
    if _, ok := self.refs[to]; !ok {
        self.pends[to] = append(self.pends[to], p)
    }
    return p
}

// Next bumps the placeholder counter used by "{n}" in label names.
func (self *Builder) Next() {
    self.i++
}

// Label places a label definition.
func (self *Builder) Label(to string) Index {
    /* placeholder substitution */
    if strings.Contains(to, "{n}") {
        to = strings.ReplaceAll(to, "{n}", strconv.Itoa(self.i))
    }

    /* check for duplications */
    if _, ok := self.refs[to]; ok {
        panic("label " + to + " has already been linked")
    }

    /* place the label */
    p := self.add(Instr { Op: OP_LABEL, Lb: self.s.Label(to) })
    self.refs[to] = p
    delete(self.pends, to)
    return p
}

// Pending returns the names of labels referred to but never placed.
func (self *Builder) Pending() []string {
    ret := make([]string, 0, len(self.pends))
    for key := range self.pends {
        ret = append(ret, key)
    }
    sort.Strings(ret)
    return ret
}

// Build finalizes the stream.
func (self *Builder) Build() *Stream {
    for _, key := range self.Pending() {
        panic("labels are not fully resolved: " + key)
    }
    return self.s
}

// Emit adds a pre-built instruction. Instructions referring to labels must be
// added with the branch helpers instead.
func (self *Builder) Emit(ins Instr) Index {
    if ins.Op.Has(S_label) {
        panic("isa: " + ins.Op.String() + " must be emitted with a label name")
    } else {
        return self.add(ins)
    }
}

// With adds dependency registers to the most recently emitted instruction.
func (self *Builder) With(deps ...Reg) *Builder {
    if p := self.s.Tail(); p != Nil {
        self.s.nodes[p].ins.Deps = append(self.s.nodes[p].ins.Deps, deps...)
    }
    return self
}

// Flag sets instruction flags on the most recently emitted instruction.
func (self *Builder) Flag(f Flags) *Builder {
    if p := self.s.Tail(); p != Nil {
        self.s.nodes[p].ins.Flags |= f
    }
    return self
}

func (self *Builder) RR(op OpCode, r1 Reg, r2 Reg) Index           { return self.Emit(RR(op, r1, r2)) }
func (self *Builder) RRR(op OpCode, r1 Reg, r2 Reg, r3 Reg) Index  { return self.Emit(RRR(op, r1, r2, r3)) }
func (self *Builder) RI(op OpCode, r1 Reg, imm int64) Index        { return self.Emit(RI(op, r1, imm)) }
func (self *Builder) RRI(op OpCode, r1 Reg, r2 Reg, v int64) Index { return self.Emit(RRI(op, r1, r2, v)) }
func (self *Builder) RX(op OpCode, r1 Reg, mem MemRef) Index       { return self.Emit(RX(op, r1, mem)) }
func (self *Builder) RRX(op OpCode, r1, r2 Reg, mem MemRef) Index  { return self.Emit(RRX(op, r1, r2, mem)) }
func (self *Builder) RS(op OpCode, r1, r3 Reg, mem MemRef) Index   { return self.Emit(RS(op, r1, r3, mem)) }
func (self *Builder) Marker(op OpCode) Index                       { return self.Emit(Marker(op)) }

func (self *Builder) LR(r1 Reg, r2 Reg) Index  { return self.RR(OP_LR, r1, r2) }
func (self *Builder) LGR(r1 Reg, r2 Reg) Index { return self.RR(OP_LGR, r1, r2) }
func (self *Builder) LTR(r1 Reg, r2 Reg) Index { return self.RR(OP_LTR, r1, r2) }
func (self *Builder) CR(r1 Reg, r2 Reg) Index  { return self.RR(OP_CR, r1, r2) }

// BBStart places a basic block start marker.
func (self *Builder) BBStart(catch bool) Index {
    if catch {
        return self.Emit(Instr { Op: OP_BBSTART, Flags: F_catch })
    } else {
        return self.Emit(Instr { Op: OP_BBSTART })
    }
}

// BRC emits a relative branch on condition.
func (self *Builder) BRC(cc Cond, to string) Index {
    return self.ref(Instr { Op: OP_BRC, Cc: cc }, to)
}

// BRCL emits a long relative branch on condition.
func (self *Builder) BRCL(cc Cond, to string) Index {
    return self.ref(Instr { Op: OP_BRCL, Cc: cc }, to)
}

// BCR emits a branch on condition to the address in r2.
func (self *Builder) BCR(cc Cond, r2 Reg) Index {
    return self.Emit(Instr { Op: OP_BCR, Cc: cc, R2: r2 })
}

// Branch emits a pre-built instruction referring to the label named to.
func (self *Builder) Branch(ins Instr, to string) Index {
    if !ins.Op.Has(S_label) {
        panic("isa: " + ins.Op.String() + " does not refer to a label")
    } else {
        return self.ref(ins, to)
    }
}

// CRJ emits a compare-and-branch of the CRJ family.
func (self *Builder) CRJ(op OpCode, r1 Reg, r2 Reg, cc Cond, to string) Index {
    ins := shaped(op, _S_crj)
    ins.R1, ins.R2, ins.Cc = r1, r2, cc
    return self.ref(ins, to)
}

// CIJ emits a compare-immediate-and-branch of the CIJ family.
func (self *Builder) CIJ(op OpCode, r1 Reg, imm int64, cc Cond, to string) Index {
    ins := shaped(op, _S_cij)
    ins.R1, ins.Imm, ins.Cc = r1, imm, cc
    return self.ref(ins, to)
}

// CRB emits a compare-and-branch to the address in mem.
func (self *Builder) CRB(op OpCode, r1 Reg, r2 Reg, cc Cond, mem MemRef) Index {
    ins := shaped(op, _S_crb)
    ins.R1, ins.R2, ins.Cc, ins.Mem = r1, r2, cc, mem
    return self.Emit(ins)
}

// Trap emits a compare-and-trap. The condition goes to the M3 field for the
// RRF2 members of the family.
func (self *Builder) Trap(op OpCode, r1 Reg, r2 Reg, cc Cond) Index {
    ins := shaped(op, _S_rr)
    ins.R1, ins.R2 = r1, r2

    /* select the condition field */
    if op.Has(S_mask) {
        ins.M3 = cc.Mask()
    } else {
        ins.Cc = cc
    }
    return self.Emit(ins)
}

// LOC emits a load-on-condition.
func (self *Builder) LOC(op OpCode, r1 Reg, r2 Reg, cc Cond) Index {
    ins := shaped(op, _S_rr | S_mask)
    ins.R1, ins.R2, ins.M3 = r1, r2, cc.Mask()
    return self.Emit(ins)
}

// Call emits a BRASL to an external symbol.
func (self *Builder) Call(r1 Reg, sym string) Index {
    return self.Emit(Symbolic(OP_BRASL, r1, sym))
}

// Stream returns the stream being built without checking the labels.
func (self *Builder) Stream() *Stream {
    return self.s
}
