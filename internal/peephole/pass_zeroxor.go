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

// zeroToXOR turns "LHI r,0" into "XR r,r" when the condition code XR sets
// is overwritten before anybody reads it.
func zeroToXOR(_ *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    e := newEdit(opts.ZeroLoadToXOR)

    /* only loads of zero */
    if cur.Op != isa.OP_LHI || cur.Imm != 0 {
        return nil
    }

    /* the condition code must be dead */
    for i := v.Next(at); i != isa.Nil; i = v.Next(i) {
        ins := v.At(i)

        /* conservatively give up at control flow */
        if ins.ReadsCC() || ins.IsLabel() || ins.Op.IsBranch() || ins.Op.IsCall() {
            return nil
        }

        /* overwritten, or the end of the block */
        if ins.Op.SetsCC() || ins.Op == isa.OP_BBEND {
            nx := isa.RR(isa.OP_XR, cur.R1, cur.R1)
            nx.Deps = cur.Clone().Deps
            return e.Gate("transforming load of zero to XR", at).Replace(at, nx).ContinueAt(at)
        }
    }
    return nil
}
