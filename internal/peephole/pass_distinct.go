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

var _DistinctForms = map[isa.OpCode]isa.OpCode {
    isa.OP_AR   : isa.OP_ARK,
    isa.OP_AGR  : isa.OP_AGRK,
    isa.OP_ALR  : isa.OP_ALRK,
    isa.OP_ALGR : isa.OP_ALGRK,
    isa.OP_AHI  : isa.OP_AHIK,
    isa.OP_AGHI : isa.OP_AGHIK,
    isa.OP_NR   : isa.OP_NRK,
    isa.OP_NGR  : isa.OP_NGRK,
    isa.OP_XR   : isa.OP_XRK,
    isa.OP_XGR  : isa.OP_XGRK,
    isa.OP_OR   : isa.OP_ORK,
    isa.OP_OGR  : isa.OP_OGRK,
    isa.OP_SLA  : isa.OP_SLAK,
    isa.OP_SLL  : isa.OP_SLLK,
    isa.OP_SRA  : isa.OP_SRAK,
    isa.OP_SRL  : isa.OP_SRLK,
    isa.OP_SR   : isa.OP_SRK,
    isa.OP_SGR  : isa.OP_SGRK,
    isa.OP_SLR  : isa.OP_SLRK,
    isa.OP_SLGR : isa.OP_SLGRK,
}

// DistinctForm returns the three-operand counterpart of op.
func DistinctForm(op isa.OpCode) (isa.OpCode, bool) {
    k, ok := _DistinctForms[op]
    return k, ok
}

func substitute(mem isa.MemRef, from isa.Reg, to isa.Reg) isa.MemRef {
    if mem.Base == from  { mem.Base = to }
    if mem.Index == from { mem.Index = to }
    return mem
}

// fuseDistinct folds a copy into the next instruction updating the copied
// register, using the distinct-operands form of that instruction:
//
//     LR    x,y ; ... ; AR   x,z   =>  ... ; ARK   x,y,z
//     LR    x,y ; ... ; AHI  x,4   =>  ... ; AHIK  x,y,4
//     LR    x,y ; ... ; SLL  x,3   =>  ... ; SLLK  x,y,3
//
func fuseDistinct(ctx *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    e := newEdit(opts.DistinctOperands)

    /* three-operand forms were introduced with z196 */
    if !ctx.Opts.Target.HasDistinctOperands() {
        return nil
    }

    /* only plain register copies */
    if cur.Is(isa.F_fill) || (cur.Op != isa.OP_LR && cur.Op != isa.OP_LGR) {
        return nil
    }

    /* copy operands */
    tr := cur.R1
    sr := cur.R2
    ms := make([]isa.Index, 0, ctx.Opts.FusionWindow)

    /* nothing to fuse for self-copies */
    if tr == sr {
        return nil
    }

    /* find the first user of the target */
    for i, n := v.Next(at), 0; i != isa.Nil && n < ctx.Opts.FusionWindow; i = v.Next(i) {
        ins := v.At(i)

        /* cannot move the copy across these */
        switch {
            case ins.IsLabel()                                 : return nil
            case ins.Op.IsCall()                               : return nil
            case ins.Op.IsBranch() && !ins.Op.IsExceptBranch() : return nil
            case isTransactional(ins)                          : return nil
            case ins.Defs(sr)                                  : return nil
            case !ins.IsReal()                                 : continue
        }

        /* skip over the unrelated instructions, the copy dies when they kill the target */
        if n++; !ins.Uses(tr) {
            if ins.Defs(tr) {
                return nil
            }
            ms = append(ms, i)
            continue
        }

        /* the user must also redefine the target */
        if !ins.Defs(tr) || ins.R1 != tr || ins.Is(isa.F_fill) {
            return nil
        }

        /* must have a distinct-operand form of the same width */
        k, ok := DistinctForm(ins.Op)
        if !ok || !sameWidth(k, cur.Op) {
            return nil
        }

        /* build the fused instruction */
        var fi isa.Instr
        switch {
            case ins.Op == isa.OP_AHI || ins.Op == isa.OP_AGHI: {
                fi = isa.RRI(k, tr, sr, ins.Imm)
            }
            case ins.Op.Has(isa.S_mem): {
                fi = isa.RRX(k, tr, sr, substitute(ins.Mem, tr, sr))
            }
            default: {
                z := ins.R2

                /* the second source must be stable across the window */
                if z == tr {
                    z = sr
                } else {
                    for _, m := range ms {
                        if v.At(m).Defs(z) {
                            return nil
                        }
                    }
                }

                /* register-register form */
                fi = isa.RRR(k, tr, sr, z)
            }
        }

        /* keep the dependencies */
        if fi.Flags = ins.Flags; len(ins.Deps) != 0 {
            fi.Deps = append([]isa.Reg(nil), ins.Deps...)
        }

        /* remove the copy, replace the user */
        return e.Gate("fusing " + cur.Op.String() + " into " + k.String(), at).
                 Delete(at).
                 Replace(i, fi).
                 ReexamineAt(v.Next(at))
    }
    return nil
}
