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

package peephole

import (
    `github.com/cloudwego/zpeep/isa`
)

// trackModified adds the registers ins writes to the set, it is reported to
// the prologue and epilogue generators so they know what to save.
func trackModified(set isa.RegSet, preserved isa.RegSet, ins isa.Instr) isa.RegSet {
    switch {
        case ins.Op == isa.OP_FENCE     : return set
        case ins.Op == isa.OP_ASSOCREGS : return set
        case ins.Op == isa.OP_DEPEND    : return set
    }

    /* dependencies of branches and labels */
    if ins.Op.IsBranch() || ins.IsLabel() {
        for _, r := range ins.Deps {
            if preserved.Has(r) {
                set = set.Add(r)
            }
        }
    }

    /* stores and compares do not write their first operand */
    if !ins.Op.Has(isa.S_r1) || ins.Op.IsStore() || ins.Op.IsCompare() {
        return set
    }

    /* pairs and ranges */
    switch ins.Op.Info().Defs {
        case isa.D_pair, isa.D_range : return set.Add(ins.DefRegs()...)
        default                      : return set.Add(ins.R1)
    }
}
