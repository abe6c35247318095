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

// Action tells the dispatcher where to go after a rule has run.
type Action uint8

const (
    // NoChange means the rule did not touch the stream.
    NoChange Action = iota

    // ContinueAt means the stream changed, the remaining rules may still run
    // on the returned position before the dispatcher moves past it.
    ContinueAt

    // ReexamineAt means the current position is gone, the dispatcher has to
    // start over at the returned position.
    ReexamineAt
)

type Outcome struct {
    Action Action
    At     isa.Index
}

type _EditOp uint8

const (
    _E_delete _EditOp = iota
    _E_replace
    _E_rewrite
    _E_before
    _E_after
)

type _EditStep struct {
    op  _EditOp
    at  isa.Index
    ins isa.Instr
}

type _EditGroup struct {
    desc  string
    at    isa.Index
    steps []_EditStep
}

// Edit is the script produced by a rule. It is made of one or more groups,
// each of them a complete transformation guarded by its own permit request.
// The cursor position is resolved only after the script has been applied,
// so it may name an instruction the script deletes or replaces.
type Edit struct {
    rule  opts.Rule
    next  isa.Index
    again bool
    grps  []_EditGroup
}

func newEdit(rule opts.Rule) *Edit {
    return &Edit { rule: rule, next: isa.Nil }
}

func (self *Edit) Rule() opts.Rule {
    return self.rule
}

// Empty reports whether the script contains no steps at all.
func (self *Edit) Empty() bool {
    for _, g := range self.grps {
        if len(g.steps) != 0 {
            return false
        }
    }
    return true
}

// Descriptions returns the description of every group in order.
func (self *Edit) Descriptions() []string {
    ret := make([]string, 0, len(self.grps))
    for _, g := range self.grps {
        ret = append(ret, g.desc)
    }
    return ret
}

// Gate starts a new transformation group.
func (self *Edit) Gate(desc string, at isa.Index) *Edit {
    self.grps = append(self.grps, _EditGroup { desc: desc, at: at })
    return self
}

func (self *Edit) add(op _EditOp, at isa.Index, ins isa.Instr) *Edit {
    if len(self.grps) == 0 {
        panic("peephole: edit step outside of a gate")
    }

    /* add to the last group */
    g := &self.grps[len(self.grps) - 1]
    g.steps = append(g.steps, _EditStep { op: op, at: at, ins: ins })
    return self
}

func (self *Edit) Delete(at isa.Index) *Edit                         { return self.add(_E_delete, at, isa.Instr{}) }
func (self *Edit) Replace(at isa.Index, ins isa.Instr) *Edit         { return self.add(_E_replace, at, ins) }
func (self *Edit) Rewrite(at isa.Index, ins isa.Instr) *Edit         { return self.add(_E_rewrite, at, ins) }
func (self *Edit) InsertBefore(at isa.Index, ins isa.Instr) *Edit    { return self.add(_E_before, at, ins) }
func (self *Edit) InsertAfter(at isa.Index, ins isa.Instr) *Edit     { return self.add(_E_after, at, ins) }

// ContinueAt sets the cursor of a successful script.
func (self *Edit) ContinueAt(at isa.Index) *Edit {
    self.next, self.again = at, false
    return self
}

// ReexamineAt sets the cursor of a successful script, the dispatcher will
// look at it again from the start.
func (self *Edit) ReexamineAt(at isa.Index) *Edit {
    self.next, self.again = at, true
    return self
}

// Commit applies every permitted group of the script to s. It returns the
// number of groups applied and where the dispatcher goes next. A nil permit
// function permits everything.
func (self *Edit) Commit(s *isa.Stream, permit func(desc string, at isa.Index) bool) (int, Outcome) {
    n := 0
    a := ContinueAt

    /* nothing to do */
    if self == nil {
        return 0, Outcome { NoChange, isa.Nil }
    }

    /* apply all the permitted groups */
    for _, g := range self.grps {
        if len(g.steps) != 0 && (permit == nil || permit(g.desc, g.at)) {
            n++
            apply(s, g.steps)
        }
    }

    /* nothing was permitted */
    if n == 0 {
        return 0, Outcome { NoChange, isa.Nil }
    }

    /* resolve the cursor */
    if self.again {
        a = ReexamineAt
    }
    return n, Outcome { a, s.Resume(self.next) }
}

func apply(s *isa.Stream, steps []_EditStep) {
    for _, v := range steps {
        switch v.op {
            case _E_delete  : s.Delete(v.at)
            case _E_replace : s.Replace(v.at, v.ins)
            case _E_rewrite : s.Rewrite(v.at, v.ins)
            case _E_before  : s.InsertBefore(v.at, v.ins)
            case _E_after   : s.InsertAfter(v.at, v.ins)
            default         : panic("peephole: invalid edit step")
        }
    }
}
