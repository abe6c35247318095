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

// fill creates a redundant self-load, it forces a pipeline refill point
// without changing any register.
func fill(r isa.Reg) isa.Instr {
    var ins isa.Instr
    switch r.Kind() {
        case isa.K_fpr : ins = isa.RR(isa.OP_LDR, r, r)
        default        : ins = isa.RR(isa.OP_LR, r, r)
    }
    ins.Flags |= isa.F_fill
    return ins
}

// swapOperands exchanges the first two register operands and reverses the
// embedded branch condition, if any. It returns false for formats that cannot
// be swapped this way.
func swapOperands(ins *isa.Instr) bool {
    switch ins.Kind() {
        case isa.KindRR, isa.KindRIE, isa.KindRRS, isa.KindRRD, isa.KindRRF: {
            if ins.Op.Has(isa.S_cond) {
                ins.Cc = ins.Cc.Reverse()
            }
        }
        case isa.KindRRF2: {
            if ins.Op.Has(isa.S_mask) {
                ins.M3 = isa.ReverseMask(ins.M3)
            }
        }
        default: {
            return false
        }
    }

    /* exchange the registers */
    ins.R1, ins.R2 = ins.R2, ins.R1
    return true
}

// filled reports whether any of the positions already is a refill point.
func filled(v isa.Reader, ps ...isa.Index) bool {
    for _, p := range ps {
        if p != isa.Nil && v.At(p).Is(isa.F_fill) {
            return true
        }
    }
    return false
}

func isGPR(r isa.Reg) bool {
    return r.Kind() == isa.K_gpr
}

func hazardOperands(ins isa.Instr) (tr isa.Reg, comp isa.Reg, ok bool) {
    if !ins.Op.Has(isa.S_r1 | isa.S_r2) {
        return 0, 0, false
    } else if tr, comp = ins.R1, ins.R2; !isGPR(tr) || !isGPR(comp) || tr == comp {
        return 0, 0, false
    } else {
        return tr, comp, true
    }
}

// truecompCompare avoids issuing a compare right next to an instruction that
// uses the complement (second) operand.
func truecompCompare(ctx *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    e := newEdit(opts.TrueCompCompare)

    /* only affects a specific range of processors */
    if !ctx.Opts.Target.HasTrueComplementHazard() {
        return nil
    }

    /* check for instruction formats */
    switch cur.Kind() {
        case isa.KindRR, isa.KindRIE, isa.KindRRS, isa.KindRRD, isa.KindRRF : break
        default                                                             : return nil
    }

    /* extract the operands */
    tr, comp, ok := hazardOperands(cur)
    if !ok {
        return nil
    }

    /* the complement must have been computed recently */
    if definedWithinLastK(v, at, comp, ctx.Opts.DefWindow) == 0 {
        return nil
    }

    /* find the branch consuming the condition code */
    br := isa.Nil
    sw := true

    /* scan until the condition code is overwritten */
    for i := v.Next(at); i != isa.Nil; i = v.Next(i) {
        ins := v.At(i)

        /* the value of this compare is no longer visible after these */
        if ins.IsLabel() || ins.Op.IsCall() || ins.Op.SetsCC() || ins.Op.SetsCompareFlag() {
            break
        }

        /* only a single conditional branch is supported */
        if ins.Op.IsBranch() {
            if br != isa.Nil || !ins.ReadsCC() {
                return nil
            } else {
                br = i
                continue
            }
        }

        /* other condition code readers cannot be reversed */
        if ins.ReadsCC() {
            sw = false
        }
    }

    /* check whether the operands are swappable */
    cs := false
    bv := isa.Instr{}

    /* the reversed condition code must not leak past the branch */
    if br != isa.Nil {
        if bv = v.At(br); sw && (bv.Op == isa.OP_BRC || bv.Op == isa.OP_BRCL) {
            cs = ccDeadFrom(v, v.Next(br)) && ccDeadFrom(v, v.Target(bv.Lb))
        }
    }

    /* neighbours */
    p := prevReal(v, at)
    n := nextReal(v, at)
    pu, pt := usesAt(v, p, comp), usesAt(v, p, tr)
    nu, nt := usesAt(v, n, comp), usesAt(v, n, tr)

    /* the hazard has already been broken */
    if filled(v, p, n) {
        return nil
    }

    /* swap the compare, reverse the consuming branch */
    swap := func() {
        ins := cur.Clone()
        swapOperands(&ins)
        bv.SetCondition(bv.Cc.Reverse())
        e.Rewrite(at, ins).Rewrite(br, bv)
    }

    /* select the transformation */
    switch {
        case cs && pu && !pt: {
            e.Gate("true/complement: swapping operands of " + cur.Op.String(), at)
            swap()

            /* the successor now becomes the hazard */
            if nt {
                e.InsertBefore(n, fill(comp))
            }
        }
        case nu && !nt: {
            if cs && p != isa.Nil && !pt {
                e.Gate("true/complement: swapping operands of " + cur.Op.String(), at)
                swap()
            } else {
                e.Gate("true/complement: inserting load before successor", n).InsertBefore(n, fill(comp))
            }
        }
        default: {
            if pu {
                e.Gate("true/complement: inserting load after predecessor", p).InsertAfter(p, fill(tr))
            }
            if nu {
                e.Gate("true/complement: inserting load before successor", n).InsertBefore(n, fill(tr))
            }
        }
    }

    /* no neighbour conflicts */
    if e.Empty() {
        return nil
    }

    /* continue with the compare */
    return e.ContinueAt(at)
}

// truecompBranch is truecompCompare for instructions that compare and branch
// (or trap) in one go, the branch target is the third neighbour.
func truecompBranch(ctx *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    bt := isa.Nil
    e := newEdit(opts.TrueCompCompareBranch)

    /* only affects a specific range of processors */
    if !ctx.Opts.Target.HasTrueComplementHazard() {
        return nil
    }

    /* check for instruction formats */
    switch cur.Kind() {
        case isa.KindRIE: {
            if !cur.Op.Has(isa.S_r2) {
                return nil
            } else if cur.Op.Has(isa.S_label) {
                bt = v.Target(cur.Lb)
            }
        }
        case isa.KindRRS, isa.KindRRD, isa.KindRRF, isa.KindRRF2: {
            break
        }
        default: {
            return nil
        }
    }

    /* extract the operands */
    tr, comp, ok := hazardOperands(cur)
    if !ok {
        return nil
    }

    /* the complement must have been computed recently */
    if definedWithinLastK(v, at, comp, ctx.Opts.DefWindow) == 0 {
        return nil
    }

    /* locate the branch target and its direction */
    bt = skipStructural(v, bt, forward)
    bk := bt != isa.Nil && v.Before(bt, at)

    /* neighbours */
    p := prevReal(v, at)
    n := nextReal(v, at)
    pu, pt := usesAt(v, p, comp), usesAt(v, p, tr)
    nu, nt := usesAt(v, n, comp), usesAt(v, n, tr)
    bu, bx := usesAt(v, bt, comp), usesAt(v, bt, tr)

    /* the hazard has already been broken */
    if filled(v, p, n, prevReal(v, bt)) {
        return nil
    }

    /* swapped form of the current instruction */
    sw := cur.Clone()
    if !swapOperands(&sw) {
        return nil
    }

    /* select the transformation */
    switch {
        case bk && p != isa.Nil && bt != isa.Nil && (pu || bu) && !pt && !bx: {
            e.Gate("true/complement: swapping operands of backward " + cur.Op.String(), at).Rewrite(at, sw)
            if nt {
                e.InsertBefore(n, fill(comp))
            }
        }
        case !bk && p != isa.Nil && n != isa.Nil && (pu || nu) && !pt && !nt: {
            e.Gate("true/complement: swapping operands of forward " + cur.Op.String(), at).Rewrite(at, sw)
            if bx {
                e.InsertBefore(bt, fill(comp))
            }
        }
        case pu && !pt: {
            e.Gate("true/complement: swapping operands of " + cur.Op.String(), at).Rewrite(at, sw)
            if bx {
                e.InsertBefore(bt, fill(comp))
            }
            if nt {
                e.InsertBefore(n, fill(comp))
            }
        }
        default: {
            if pu {
                e.Gate("true/complement: inserting load after predecessor", p).InsertAfter(p, fill(tr))
            }
            if bu {
                e.Gate("true/complement: inserting load before branch target", bt).InsertBefore(bt, fill(tr))
            }
            if nu && (n != bt || !bu) {
                e.Gate("true/complement: inserting load before successor", n).InsertBefore(n, fill(tr))
            }
        }
    }

    /* no neighbour conflicts */
    if e.Empty() {
        return nil
    }

    /* continue with the branch */
    return e.ContinueAt(at)
}

// truecompLoadComplement breaks up a load-complement that closely follows
// the definition of its source.
func truecompLoadComplement(ctx *Context, v isa.Reader, at isa.Index) *Edit {
    cur := v.At(at)
    e := newEdit(opts.TrueCompLoadComplement)

    /* only affects a specific range of processors */
    if !ctx.Opts.Target.HasTrueComplementHazard() || !cur.Op.Has(isa.S_r1 | isa.S_r2) {
        return nil
    }

    /* the source and the complemented target */
    sr := cur.R2
    tr := cur.R1

    /* must be general purpose registers */
    if !isGPR(sr) || !isGPR(tr) {
        return nil
    }

    /* neighbours */
    p1 := prevReal(v, at)
    p2 := prevReal(v, p1)
    p3 := prevReal(v, p2)
    n1 := nextReal(v, at)

    /* the hazard has already been broken */
    if filled(v, p1, n1) {
        return nil
    }

    /* select the transformation */
    switch {
        case defsAt(v, p1, sr) && usesAt(v, n1, sr): {
            e.Gate("true/complement: inserting load after " + cur.Op.String(), at).InsertAfter(at, fill(tr))
        }
        case defsAt(v, p2, sr) && (usesAt(v, n1, sr) || usesAt(v, p1, sr)): {
            e.Gate("true/complement: inserting load before " + cur.Op.String(), at).InsertBefore(at, fill(tr))
        }
        case defsAt(v, p3, sr) && usesAt(v, p1, sr): {
            e.Gate("true/complement: inserting load before " + cur.Op.String(), at).InsertBefore(at, fill(tr))
        }
        default: {
            return nil
        }
    }

    /* continue with the load */
    return e.ContinueAt(at)
}
