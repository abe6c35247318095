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
    `strings`

    `github.com/cockroachdb/errors`
)

// Arch is a hardware generation. Generations are totally ordered, a newer
// generation supports every facility of the older ones.
type Arch uint8

const (
    Z900 Arch = iota
    Z990
    Z9
    Z10
    Z196
    ZEC12
    Z13
    Z14
    Z15
    Z16
)

// ArchLatest is the newest generation known to the optimizer.
const ArchLatest = Z16

var _ArchNames = [...]string {
    Z900  : "z900",
    Z990  : "z990",
    Z9    : "z9",
    Z10   : "z10",
    Z196  : "z196",
    ZEC12 : "zec12",
    Z13   : "z13",
    Z14   : "z14",
    Z15   : "z15",
    Z16   : "z16",
}

func (self Arch) String() string {
    if int(self) < len(_ArchNames) {
        return _ArchNames[self]
    } else {
        return fmt.Sprintf("Arch(%d)", uint8(self))
    }
}

// ParseArch parses a generation name such as "z10" or "z196".
func ParseArch(name string) (Arch, error) {
    for i, v := range _ArchNames {
        if strings.EqualFold(v, name) {
            return Arch(i), nil
        }
    }
    return 0, errors.Newf("isa: unknown hardware generation %q", name)
}

// Target describes the machine the stream is generated for.
type Target struct {
    Arch Arch
    ZOS  bool
}

// Supports reports whether the target implements the facilities introduced
// with generation a.
func (self Target) Supports(a Arch) bool {
    return self.Arch >= a
}

// HasDistinctOperands reports whether the three-operand K forms are available.
func (self Target) HasDistinctOperands() bool {
    return self.Supports(Z196)
}

// HasTrueComplementHazard reports whether issuing a register and its
// complement in the same group stalls the pipeline on this target.
func (self Target) HasTrueComplementHazard() bool {
    return self.Supports(Z10) && !self.Supports(Z196)
}

func (self Target) String() string {
    if self.ZOS {
        return self.Arch.String() + "/zos"
    } else {
        return self.Arch.String()
    }
}
