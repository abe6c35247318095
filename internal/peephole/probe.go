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

const (
    _CC_budget = 64
)

// usedInFutureMemRef looks at most window real instructions past at for a
// load or store addressing memory through r. The scan ends early at a
// barrier or when r appears as a target operand.
func usedInFutureMemRef(v isa.Reader, at isa.Index, window int, r isa.Reg) bool {
    for i, n := v.Next(at), 0; i != isa.Nil && n < window; i = v.Next(i) {
        ins := v.At(i)

        /* stop at barriers and redefinitions */
        if isBarrier(ins) || ins.MatchesTarget(r) {
            return false
        }

        /* only real instructions count */
        if !ins.IsReal() {
            continue
        }

        /* check the memory operand */
        if n++; (ins.Op.IsLoad() || ins.Op.IsStore()) && ins.Memory().Uses(r) {
            return true
        }
    }
    return false
}

// ccWindowClear reports whether no instruction strictly between from and to
// sets or reads the condition code.
func ccWindowClear(v isa.Reader, from isa.Index, to isa.Index) bool {
    for i := v.Next(from); i != isa.Nil && i != to; i = v.Next(i) {
        if ins := v.At(i); ins.Op.SetsCC() || ins.ReadsCC() {
            return false
        }
    }
    return true
}

// definedWithinLastK returns the distance (1 based) to the closest of the k
// preceding real instructions that defines r, or 0 if none of them does.
func definedWithinLastK(v isa.Reader, at isa.Index, r isa.Reg, k int) int {
    for i, n := prevReal(v, at), 1; i != isa.Nil && n <= k; i, n = prevReal(v, i), n + 1 {
        if v.At(i).Defs(r) {
            return n
        }
    }
    return 0
}

// ccDeadFrom reports whether the condition code is provably overwritten
// before it is read on every path starting at i. Calls, computed branches
// and running out of budget all count as "might be read".
func ccDeadFrom(v isa.Reader, i isa.Index) bool {
    n := _CC_budget
    return ccdead(v, i, &n)
}

func ccdead(v isa.Reader, i isa.Index, budget *int) bool {
    for ; *budget > 0; *budget-- {
        if i == isa.Nil {
            return true
        }

        /* check the condition code effects */
        ins := v.At(i)
        switch {
            case ins.ReadsCC()    : return false
            case ins.Op.SetsCC()  : return true
            case ins.Op.IsCall()  : return false
        }

        /* follow the control flow */
        if ins.Op.IsBranch() && !ins.Op.IsExceptBranch() {
            t := isa.Nil

            /* computed branches and unplaced labels go anywhere */
            if ins.Op.Has(isa.S_label) {
                t = v.Target(ins.Lb)
            }

            /* unconditional branches only have one path */
            if t == isa.Nil {
                return false
            } else if ins.IsUnconditional() {
                i = t
                continue
            } else if !ccdead(v, t, budget) {
                return false
            }
        }

        /* move to the next instruction */
        i = v.Next(i)
    }
    return false
}
