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

// forwardBranch retargets a branch whose target is itself an unconditional
// branch to the final destination:
//
//     BRC   E,L1               =>  BRC   E,L2
//     ...
//   L1:
//     BRC   A,L2
//
func forwardBranch(_ *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    e := newEdit(opts.BranchForwarding)

    /* only direct branches to a label */
    if cur.Op.IsCall() || !cur.Op.IsBranch() || !cur.Op.Has(isa.S_label) {
        return nil
    }

    /* find the first real instruction after the label */
    i := skipStructural(v, v.Target(cur.Lb), forward)
    if i == isa.Nil || i == at {
        return nil
    }

    /* must be an unconditional relative branch */
    ins := v.At(i)
    if ins.Op != isa.OP_BRC && ins.Op != isa.OP_BRCL {
        return nil
    } else if !ins.IsUnconditional() || ins.Lb == cur.Lb {
        return nil
    }

    /* redirect the branch */
    nb := cur.Clone()
    nb.SetTarget(ins.Lb)
    return e.Gate("forwarding branch to final target", at).Rewrite(at, nb).ContinueAt(at)
}
