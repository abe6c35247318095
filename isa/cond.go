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
)

// Cond is a branch condition. The value of a condition is exactly the 4-bit
// condition code mask it encodes, bit 3 selects CC0 and bit 0 selects CC3.
type Cond uint8

const (
    COND_NOP    Cond = 0x0
    COND_BO     Cond = 0x1     // CC3
    COND_BH     Cond = 0x2     // CC2
    COND_MASK3  Cond = 0x3
    COND_BL     Cond = 0x4     // CC1
    COND_MASK5  Cond = 0x5
    COND_MASK6  Cond = 0x6
    COND_BNE    Cond = 0x7
    COND_BE     Cond = 0x8     // CC0
    COND_MASK9  Cond = 0x9
    COND_MASK10 Cond = 0xa
    COND_BNL    Cond = 0xb
    COND_MASK12 Cond = 0xc
    COND_BNH    Cond = 0xd
    COND_BNO    Cond = 0xe
    COND_BRC    Cond = 0xf     // unconditional
)

var _CondNames = [...]string {
    COND_NOP    : "NOP",
    COND_BO     : "O",
    COND_BH     : "H",
    COND_MASK3  : "M3",
    COND_BL     : "L",
    COND_MASK5  : "M5",
    COND_MASK6  : "M6",
    COND_BNE    : "NE",
    COND_BE     : "E",
    COND_MASK9  : "M9",
    COND_MASK10 : "M10",
    COND_BNL    : "NL",
    COND_MASK12 : "M12",
    COND_BNH    : "NH",
    COND_BNO    : "NO",
    COND_BRC    : "A",
}

// CondByName looks up a condition by its mnemonic suffix.
func CondByName(name string) (Cond, bool) {
    for i, v := range _CondNames {
        if v == name {
            return Cond(i), true
        }
    }
    return 0, false
}

// Mask returns the raw 4-bit mask of the condition.
func (self Cond) Mask() uint8 {
    return uint8(self) & 0x0f
}

// Selects reports whether the condition is taken for condition code cc.
func (self Cond) Selects(cc uint8) bool {
    return cc < 4 && self.Mask() & (8 >> cc) != 0
}

// Reverse returns the condition that holds when the operands of the
// comparison producing the condition code are swapped. CC1 (low) and CC2
// (high) trade places, CC0 and CC3 stay as they are.
func (self Cond) Reverse() Cond {
    return Cond(ReverseMask(self.Mask()))
}

// Negate returns the complementary condition.
func (self Cond) Negate() Cond {
    return self ^ COND_BRC
}

func (self Cond) String() string {
    if int(self) < len(_CondNames) {
        return _CondNames[self]
    } else {
        return fmt.Sprintf("Cond(%d)", uint8(self))
    }
}

// ReverseMask reverses a raw M3 mask field. The M3 field of the RRF2 format
// uses the same bit assignment as a branch condition but is stored as a bare
// mask, so it has its own entry point.
func ReverseMask(m uint8) uint8 {
    return m &^ 0x6 | (m & 0x4) >> 1 | (m & 0x2) << 1
}
