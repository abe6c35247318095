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
    `github.com/bytedance/gopkg/lang/fastrand`

    `github.com/cloudwego/zpeep/internal/opts`
    `github.com/cloudwego/zpeep/isa`
)

type _Rule func(ctx *Context, v isa.Reader, at isa.Index) *Edit

// Result is the observable outcome of a single pass.
type Result struct {
    Modified isa.RegSet
    Stats    Stats
}

type _Pass struct {
    ctx *Context
    s   *isa.Stream
    ret Result
}

// Optimize runs a single peephole pass over s, modifying it in place.
func Optimize(s *isa.Stream, o *opts.Options) Result {
    p := _Pass {
        s   : s,
        ctx : &Context { Opts: o },
    }

    /* walk the stream */
    for cur := s.Head(); cur != isa.Nil; s.Reclaim() {
        cur = p.step(cur)
    }
    return p.ret
}

// try runs a single rule at cur. It returns the position to continue with,
// stop is true when the dispatcher has to start over there.
func (self *_Pass) try(rule opts.Rule, fn _Rule, cur isa.Index) (isa.Index, bool) {
    if !self.ctx.Opts.Enabled(rule) {
        return cur, false
    }

    /* apply the rule */
    n, ret := fn(self.ctx, self.s, cur).Commit(self.s, self.ctx.permit)
    if ret.Action == NoChange {
        return cur, false
    }

    /* update the statistics */
    self.ret.Stats[rule] += n
    self.ctx.tracef("applied %s at #%d", rule, cur)

    /* the stream may have been emptied from here on */
    if ret.At == isa.Nil {
        return isa.Nil, true
    } else {
        return ret.At, ret.Action == ReexamineAt
    }
}

// random decides whether to skip a rule for randomized code generation.
func (self *_Pass) random(rule opts.Rule, cur isa.Index) bool {
    return self.ctx.Opts.Randomize &&
           fastrand.Uint32() & 1 == 0 &&
           self.ctx.permit("random codegen, disable " + rule.String(), cur)
}

func (self *_Pass) step(cur isa.Index) isa.Index {
    var stop bool
    ins := self.s.At(cur)

    /* restore the state lost on exception edges */
    if ins.Op == isa.OP_BBSTART {
        if cur, stop = self.try(opts.CatchLiteralPoolReload, reloadLiteralPool, cur); stop {
            return cur
        }
    }

    /* record the modified registers */
    self.ret.Modified = trackModified(self.ret.Modified, self.ctx.Opts.Preserved, ins)

    /* true / complement hazards on compares */
    if ins.Op.SetsCompareFlag() && ins.Op != isa.OP_CHLR && ins.Op != isa.OP_CLHLR {
        if cur, stop = self.try(opts.TrueCompCompare, truecompCompare, cur); stop {
            return cur
        }
    }

    /* branch forwarding */
    if ins = self.s.At(cur); ins.Op.IsBranch() {
        if cur, stop = self.try(opts.BranchForwarding, forwardBranch, cur); stop {
            return cur
        }
    }

    /* opcode specific rules */
    switch ins = self.s.At(cur); ins.Op {
        case isa.OP_CPYA, isa.OP_LDR: {
            if !self.random(opts.MoveReduction, cur) {
                if cur, stop = self.try(opts.MoveReduction, reduceMoves, cur); stop {
                    return cur
                }
            }
        }

        case isa.OP_LHI: {
            if cur, stop = self.try(opts.ZeroLoadToXOR, zeroToXOR, cur); stop {
                return cur
            }
        }

        case isa.OP_LR, isa.OP_LTR, isa.OP_LGR, isa.OP_LTGR: {
            if !self.random(opts.MoveReduction, cur) {
                if cur, stop = self.try(opts.MoveReduction, reduceMoves, cur); stop {
                    return cur
                }
            }

            /* fusion only applies when the copy is still there */
            if self.s.At(cur).Op == ins.Op && !self.random(opts.DistinctOperands, cur) {
                if cur, stop = self.try(opts.DistinctOperands, fuseDistinct, cur); stop {
                    return cur
                }
            }
        }

        case isa.OP_CRJ, isa.OP_CGRJ, isa.OP_CLRJ, isa.OP_CLGRJ,
             isa.OP_CRB, isa.OP_CGRB, isa.OP_CLRB, isa.OP_CLGRB,
             isa.OP_CRT, isa.OP_CGRT, isa.OP_CLRT, isa.OP_CLGRT,
             isa.OP_CLR, isa.OP_CGFR, isa.OP_CLGFR: {
            if cur, stop = self.try(opts.TrueCompCompareBranch, truecompBranch, cur); stop {
                return cur
            }
        }

        case isa.OP_LCR, isa.OP_LCGR, isa.OP_LCGFR: {
            if cur, stop = self.try(opts.TrueCompLoadComplement, truecompLoadComplement, cur); stop {
                return cur
            }
        }
    }

    /* move to the next instruction */
    return self.s.Next(cur)
}
