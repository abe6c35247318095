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
    `math/bits`
    `strconv`
    `strings`

    `github.com/cockroachdb/errors`
)

// Reg is a register identity. Two registers are the same register if and
// only if their Reg values are equal. The zero value means "no register".
//
//     bit  0 .. 11 : register number
//     bit 12 .. 14 : register kind
//     bit 15       : virtual flag
//
type Reg uint16

const (
    _B_kind    = 12
    _M_kind    = 0x07
    _M_num     = (1 << _B_kind) - 1
    _R_virtual = 1 << 15
)

type RegKind uint8

const (
    K_none RegKind = iota
    K_gpr
    K_fpr
    K_ar
)

const (
    R0 Reg = Reg(K_gpr) << _B_kind | iota
    R1
    R2
    R3
    R4
    R5
    R6
    R7
    R8
    R9
    R10
    R11
    R12
    R13
    R14
    R15
)

const (
    F0 Reg = Reg(K_fpr) << _B_kind | iota
    F1
    F2
    F3
    F4
    F5
    F6
    F7
    F8
    F9
    F10
    F11
    F12
    F13
    F14
    F15
)

const (
    A0 Reg = Reg(K_ar) << _B_kind | iota
    A1
    A2
    A3
    A4
    A5
    A6
    A7
    A8
    A9
    A10
    A11
    A12
    A13
    A14
    A15
)

// MakeReg creates a physical register of the given kind.
func MakeReg(kind RegKind, num int) Reg {
    if kind == K_none || kind > K_ar {
        panic("isa: invalid register kind")
    } else if num < 0 || num > 15 {
        panic(fmt.Sprintf("isa: invalid register number %d", num))
    } else {
        return Reg(kind) << _B_kind | Reg(num)
    }
}

// MakeVirtual creates a virtual register. Virtual registers only exist before
// register allocation, the optimizer never reasons about them.
func MakeVirtual(kind RegKind, num int) Reg {
    if kind == K_none || kind > K_ar {
        panic("isa: invalid register kind")
    } else if num < 0 || num > _M_num {
        panic(fmt.Sprintf("isa: invalid virtual register number %d", num))
    } else {
        return Reg(kind) << _B_kind | Reg(num) | _R_virtual
    }
}

func (self Reg) Kind() RegKind {
    return RegKind((self >> _B_kind) & _M_kind)
}

func (self Reg) Num() int {
    return int(self & _M_num)
}

func (self Reg) Valid() bool {
    return self.Kind() != K_none
}

func (self Reg) Virtual() bool {
    return self & _R_virtual != 0
}

// Pair returns the odd sibling of an even-odd register pair.
func (self Reg) Pair() Reg {
    return self | 1
}

var _RegKinds = map[byte]RegKind {
    'r': K_gpr,
    'f': K_fpr,
    'a': K_ar,
}

// ParseReg parses a register name as printed by Reg.String, such as "r6",
// "f8" or the virtual "vr3".
func ParseReg(s string) (Reg, error) {
    virt := false
    name := strings.ToLower(s)

    /* virtual registers */
    if strings.HasPrefix(name, "v") {
        virt, name = true, name[1:]
    }

    /* register kind */
    if name == "" {
        return 0, errors.Newf("invalid register %q", s)
    }

    /* parse the register number */
    kind, ok := _RegKinds[name[0]]
    num, err := strconv.Atoi(name[1:])

    /* check the register */
    if !ok || err != nil || num < 0 || num > 15 {
        return 0, errors.Newf("invalid register %q", s)
    } else if virt {
        return MakeVirtual(kind, num), nil
    } else {
        return MakeReg(kind, num), nil
    }
}

// Offset returns the n-th register after this one of the same kind, wrapping
// around at 15 the way register ranges of load/store multiple do.
func (self Reg) Offset(n int) Reg {
    return self &^ _M_num | Reg((self.Num() + n) & 15)
}

func (self Reg) String() string {
    var p string
    var v string

    /* select the kind prefix */
    switch self.Kind() {
        case K_gpr : p = "r"
        case K_fpr : p = "f"
        case K_ar  : p = "a"
        default    : return "%none"
    }

    /* virtual registers */
    if self.Virtual() {
        v = "v"
    }

    /* format the register */
    return fmt.Sprintf("%s%s%d", v, p, self.Num())
}

// RegSet is a set of physical registers.
type RegSet uint64

func regbit(r Reg) RegSet {
    if !r.Valid() || r.Virtual() {
        return 0
    } else {
        return 1 << ((uint(r.Kind()) - 1) * 16 + uint(r.Num()))
    }
}

func (self RegSet) Add(r ...Reg) RegSet {
    for _, v := range r {
        self |= regbit(v)
    }
    return self
}

func (self RegSet) Has(r Reg) bool {
    return r.Valid() && !r.Virtual() && self & regbit(r) != 0
}

func (self RegSet) Union(other RegSet) RegSet {
    return self | other
}

func (self RegSet) Len() int {
    return bits.OnesCount64(uint64(self))
}

func (self RegSet) Regs() []Reg {
    ret := make([]Reg, 0, self.Len())
    for v := uint64(self); v != 0; v &= v - 1 {
        i := bits.TrailingZeros64(v)
        ret = append(ret, MakeReg(RegKind(i / 16 + 1), i % 16))
    }
    return ret
}

func (self RegSet) String() string {
    rs := self.Regs()
    ss := make([]string, 0, len(rs))

    /* dump every register */
    for _, r := range rs {
        ss = append(ss, r.String())
    }

    /* join them together */
    return "{" + strings.Join(ss, ", ") + "}"
}
