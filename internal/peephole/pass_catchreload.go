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
    `github.com/cloudwego/zpeep/internal/opts`
    `github.com/cloudwego/zpeep/isa`
)

// reloadLiteralPool restores the literal pool base register on entry to a
// catch block, its value is not preserved across the exception edge.
func reloadLiteralPool(ctx *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    lp := ctx.Opts.LiteralPool
    e := newEdit(opts.CatchLiteralPoolReload)

    /* only catch block entries */
    if cur.Op != isa.OP_BBSTART || !cur.Is(isa.F_catch) {
        return nil
    }

    /* only needed for z/OS targets older than z10 with a fixed pool register */
    if !ctx.Opts.Target.ZOS || ctx.Opts.Target.Supports(isa.Z10) {
        return nil
    } else if lp.OnDemand || !lp.InUse || !lp.Reg.Valid() {
        return nil
    }

    /* already reloaded */
    if n := v.Next(at); n != isa.Nil {
        if ins := v.At(n); ins.Op == isa.OP_LARL && ins.R1 == lp.Reg && ins.Is(isa.F_litpool) {
            return nil
        }
    }

    /* materialize the pool address */
    ins := isa.Symbolic(isa.OP_LARL, lp.Reg, isa.LiteralPoolSymbol)
    ins.Flags |= isa.F_litpool
    return e.Gate("reloading literal pool register at catch block entry", at).InsertAfter(at, ins).ContinueAt(at)
}
