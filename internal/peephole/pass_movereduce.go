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

func isSelfMove(op isa.OpCode) bool {
    return op == isa.OP_LR || op == isa.OP_LGR || op == isa.OP_LDR || op == isa.OP_CPYA
}

func isGPRMove(op isa.OpCode) bool {
    return op == isa.OP_LR || op == isa.OP_LGR || op == isa.OP_LTR || op == isa.OP_LTGR
}

func sameWidth(a isa.OpCode, b isa.OpCode) bool {
    return (a.Is32() && b.Is32()) || (a.Is64() && b.Is64())
}

func loadAndTest(wide bool) isa.OpCode {
    if wide {
        return isa.OP_LTGR
    } else {
        return isa.OP_LTR
    }
}

// reduceMoves removes or simplifies register copies.
//
//     LR    x,x                    =>  (removed)
//     LTR   x,x                    =>  CHI   x,0           if x is about to address memory
//     LR    x,y ; LTR x,x          =>  LTR   x,y
//     SLR   x,z ; LTR x,x ; BRC E  =>  SLR   x,z ; BRC M10
//     LR    x,y ; ... ; CHI x,0    =>  LTR   x,y ; ...
//     LR    x,y ; ... ; LR  y,x    =>  LR    x,y ; ...
func reduceMoves(ctx *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    e := newEdit(opts.MoveReduction)

    /* loads inserted to break hazards must stay */
    if cur.Is(isa.F_fill) || !cur.Op.Has(isa.S_r1 | isa.S_r2) {
        return nil
    }

    /* copying a register to itself */
    if cur.R1 == cur.R2 && isSelfMove(cur.Op) {
        return e.Gate("removing redundant " + cur.Op.String(), at).Delete(at).ReexamineAt(at)
    }

    /* self-tests */
    if cur.R1 == cur.R2 && (cur.Op == isa.OP_LTR || cur.Op == isa.OP_LTGR) {
        if ret := reduceSelfTest(ctx, v, at, cur); ret != nil {
            return ret
        }
    }

    /* scan forward for redundant copies */
    return reduceCopies(ctx, v, at, cur)
}

func reduceSelfTest(ctx *Context, v isa.Reader, at isa.Index, cur isa.Instr) *Edit {
    r := cur.R1
    e := newEdit(opts.MoveReduction)

    /* the register addresses memory soon, avoid the interlock */
    if usedInFutureMemRef(v, at, ctx.Opts.AGIWindow, r) {
        op := isa.OP_CHI
        if cur.Op.Is64() { op = isa.OP_CGHI }
        return e.Gate("transforming load and test to compare halfword immediate", at).
                 Replace(at, isa.RI(op, r, 0)).
                 ContinueAt(at)
    }

    /* nothing before */
    p := v.Prev(at)
    if p == isa.Nil {
        return nil
    }

    /* fold the preceding copy into the test */
    if pv := v.At(p); !pv.Is(isa.F_fill) && (r == pv.R1 || r == pv.R2) && (
        (pv.Op == isa.OP_LR  && cur.Op == isa.OP_LTR) ||
        (pv.Op == isa.OP_LGR && cur.Op == isa.OP_LTGR)) {
        return e.Gate("transforming load register into load and test register", at).
                 Replace(p, isa.RR(cur.Op, pv.R1, pv.R2)).
                 Delete(at).
                 ContinueAt(p)
    }

    /* reuse the condition code set by a logical add / subtract */
    if n := v.Next(at); n != isa.Nil {
        pv := v.At(p)
        nv := v.At(n)

        /* only a branch on zero / non-zero can be remapped */
        if !pv.Op.SetsCC() || !pv.Op.SetsCarry() || pv.R1 != r || !sameWidth(pv.Op, cur.Op) {
            return nil
        } else if nv.Op != isa.OP_BRC || (nv.Cc != isa.COND_BE && nv.Cc != isa.COND_BNE) {
            return nil
        }

        /* the remapped condition code must not be observed later */
        if !ccDeadFrom(v, v.Next(n)) || !ccDeadFrom(v, v.Target(nv.Lb)) {
            return nil
        }

        /* zero is CC0 or CC2 for logical operations */
        if nv.Cc == isa.COND_BE {
            nv.SetCondition(isa.COND_MASK10)
        } else {
            nv.SetCondition(isa.COND_MASK5)
        }

        /* remove the test */
        return e.Gate("removing redundant load and test, condition code is reused from " + pv.Op.String(), at).
                 Delete(at).
                 Rewrite(n, nv).
                 ReexamineAt(at)
    }
    return nil
}

func reduceCopies(ctx *Context, v isa.Reader, at isa.Index, cur isa.Instr) *Edit {
    op := cur.Op
    tr := cur.R1
    sr := cur.R2
    ls := op.SetsCC()
    e := newEdit(opts.MoveReduction)

    /* condition code activity seen so far */
    sc := false
    uc := false
    lt := false

    /* scan the window */
    for i, n := v.Next(at), 0; i != isa.Nil && n < ctx.Opts.MoveWindow; i = v.Next(i) {
        ins := v.At(i)

        /* stop at barriers, give up on transactional regions */
        if isBarrier(ins) {
            break
        } else if isTransactional(ins) {
            return nil
        } else if !ins.IsReal() {
            continue
        }

        /* compare with zero of the copied value, turn the copy into a test */
        if n++; !lt && isGPRMove(op) && (ins.Op == isa.OP_CHI || ins.Op == isa.OP_CGHI) {
            if sameWidth(ins.Op, op) && ins.R1 == tr && ins.Imm == 0 && !sc && !uc {
                e.Gate("transforming LR/CHI to LTR", i).Delete(i)
                lt = true

                /* the copy itself becomes a load and test */
                if !op.SetsCC() {
                    op = loadAndTest(op.Is64())
                    ls = true
                    e.Replace(at, isa.RR(op, tr, sr))
                }
            }
        }

        /* a copy of the same or the reversed direction */
        if ins.Op == op && ins.Kind() == isa.KindRR && !ins.Is(isa.F_fill) {
            if (ins.R1 == sr && ins.R2 == tr) || (ins.R1 == tr && ins.R2 == sr) {
                if !ls || (!sc && !uc) {
                    e.Gate("duplicate " + op.String() + " removal", i).Delete(i)
                    n = 0
                    continue
                }
            }
        }

        /* update the condition code activity */
        sc = sc || ins.Op.SetsCC()
        uc = uc || ins.ReadsCC()

        /* either register changed, copies are no longer redundant */
        if ins.Defs(sr) || ins.Defs(tr) {
            break
        }
    }

    /* check for changes */
    if e.Empty() {
        return nil
    } else {
        return e.ContinueAt(at)
    }
}
