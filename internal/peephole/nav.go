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

type direction int8

const (
    forward  direction = 1
    backward direction = -1
)

func step(v isa.Reader, i isa.Index, dir direction) isa.Index {
    if dir == forward {
        return v.Next(i)
    } else {
        return v.Prev(i)
    }
}

// skipStructural returns the first real instruction at or after (or before,
// depending on dir) i, ignoring labels, pseudo and non-emitting markers.
func skipStructural(v isa.Reader, i isa.Index, dir direction) isa.Index {
    for i != isa.Nil && !v.At(i).IsReal() {
        i = step(v, i, dir)
    }
    return i
}

// advance moves to the neighbouring real instruction in the given direction.
func advance(v isa.Reader, i isa.Index, dir direction) isa.Index {
    if i == isa.Nil {
        return isa.Nil
    } else {
        return skipStructural(v, step(v, i, dir), dir)
    }
}

func nextReal(v isa.Reader, i isa.Index) isa.Index { return advance(v, i, forward) }
func prevReal(v isa.Reader, i isa.Index) isa.Index { return advance(v, i, backward) }

// isBarrier reports whether linear analysis has to stop at ins: static
// control flow may enter or leave the window there.
func isBarrier(ins isa.Instr) bool {
    return ins.IsLabel() || ins.Op.IsCall() || ins.Op.IsBranch() || ins.Op == isa.OP_DCB
}

// barrierAt is isBarrier on a stream position, the end of the stream counts.
func barrierAt(v isa.Reader, i isa.Index) bool {
    return i == isa.Nil || isBarrier(v.At(i))
}

func isTransactional(ins isa.Instr) bool {
    return ins.Op.IsTransactional()
}

func usesAt(v isa.Reader, i isa.Index, r isa.Reg) bool {
    return i != isa.Nil && v.At(i).Uses(r)
}

func defsAt(v isa.Reader, i isa.Index, r isa.Reg) bool {
    return i != isa.Nil && v.At(i).Defs(r)
}
