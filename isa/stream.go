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

package isa

import (
    `fmt`

    `github.com/cockroachdb/errors`
    `github.com/oleiade/lane`
)

// Index addresses a slot in a Stream. Indexes are stable for the lifetime of
// the instruction they address: inserting or deleting other instructions never
// moves it.
type Index int32

// Nil is the Index of no instruction.
const Nil Index = -1

const (
    _ORD_gap = 1 << 20
)

type node struct {
    ins  Instr
    prev Index
    next Index
    ord  int64
    live bool
}

type label struct {
    name string
    at   Index
}

// Reader is the read-only view of a Stream.
type Reader interface {
    Head() Index
    Tail() Index
    Next(i Index) Index
    Prev(i Index) Index
    At(i Index) Instr
    Before(a Index, b Index) bool
    Target(lb Label) Index
}

// Stream is an ordered, doubly linked sequence of instructions stored in an
// index-addressed arena.
//
// Deleted slots stay dead until Reclaim is called. A dead slot keeps the link
// to the instruction that followed it at the time it was deleted (or to its
// replacement), so an Index held across a mutation can always be resumed to
// a live position with Resume.
type Stream struct {
    head  Index
    tail  Index
    size  int
    nodes []node
    dead  []Index
    free  *lane.Stack
    names map[string]Label
    label []label
}

func NewStream() *Stream {
    return &Stream {
        head  : Nil,
        tail  : Nil,
        free  : lane.NewStack(),
        names : make(map[string]Label),
        label : []label {{ at: Nil }},
    }
}

func (self *Stream) Head() Index { return self.head }
func (self *Stream) Tail() Index { return self.tail }
func (self *Stream) Len()  int   { return self.size }

func (self *Stream) node(i Index) *node {
    if i < 0 || int(i) >= len(self.nodes) {
        panic(fmt.Sprintf("isa: instruction index #%d out of range", i))
    } else {
        return &self.nodes[i]
    }
}

// Live reports whether i addresses an instruction that is still in the stream.
func (self *Stream) Live(i Index) bool {
    return i >= 0 && int(i) < len(self.nodes) && self.nodes[i].live
}

// At returns a copy of the instruction at i.
func (self *Stream) At(i Index) Instr {
    return self.node(i).ins
}

// Next returns the instruction following i, or Nil at the end of the stream.
func (self *Stream) Next(i Index) Index {
    if p := self.node(i); p.live {
        return p.next
    } else {
        return self.Resume(p.next)
    }
}

// Prev returns the instruction preceding i, or Nil at the start of the stream.
func (self *Stream) Prev(i Index) Index {
    return self.node(i).prev
}

// Before reports whether a is located before b.
func (self *Stream) Before(a Index, b Index) bool {
    return self.node(a).ord < self.node(b).ord
}

// Resume returns i if it is live, otherwise the first live instruction that
// took its place.
func (self *Stream) Resume(i Index) Index {
    for i != Nil && !self.node(i).live {
        i = self.nodes[i].next
    }
    return i
}

// Label returns the label with the given name, creating it if needed.
func (self *Stream) Label(name string) Label {
    if lb, ok := self.names[name]; ok {
        return lb
    }

    /* allocate a new label */
    lb := Label(len(self.label))
    self.names[name] = lb
    self.label = append(self.label, label { name: name, at: Nil })
    return lb
}

// LabelName returns the name of lb.
func (self *Stream) LabelName(lb Label) string {
    if lb == 0 || int(lb) >= len(self.label) {
        return fmt.Sprintf("L#%d", lb)
    } else {
        return self.label[lb].name
    }
}

// LookupLabel finds an existing label by name.
func (self *Stream) LookupLabel(name string) (Label, bool) {
    lb, ok := self.names[name]
    return lb, ok
}

// Target returns the label instruction lb is bound to, or Nil.
func (self *Stream) Target(lb Label) Index {
    if lb == 0 || int(lb) >= len(self.label) {
        return Nil
    } else {
        return self.label[lb].at
    }
}

func (self *Stream) bind(i Index) {
    if ins := &self.nodes[i].ins; ins.Op == OP_LABEL {
        if ins.Lb == 0 || int(ins.Lb) >= len(self.label) {
            panic(fmt.Sprintf("isa: label #%d does not belong to this stream", ins.Lb))
        } else if at := self.label[ins.Lb].at; at != Nil && at != i {
            panic("isa: label " + self.label[ins.Lb].name + " has already been placed")
        } else {
            self.label[ins.Lb].at = i
        }
    }
}

func (self *Stream) unbind(i Index) {
    if ins := &self.nodes[i].ins; ins.Op == OP_LABEL && self.label[ins.Lb].at == i {
        self.label[ins.Lb].at = Nil
    }
}

func (self *Stream) alloc(ins Instr) Index {
    var i Index

    /* reuse reclaimed slots first */
    if !self.free.Empty() {
        i = self.free.Pop().(Index)
    } else {
        i = Index(len(self.nodes))
        self.nodes = append(self.nodes, node{})
    }

    /* initialize the node */
    self.nodes[i] = node {
        ins  : ins,
        prev : Nil,
        next : Nil,
        live : true,
    }
    return i
}

func (self *Stream) renumber() {
    ord := int64(0)
    for i := self.head; i != Nil; i = self.nodes[i].next {
        self.nodes[i].ord = ord
        ord += _ORD_gap
    }
}

func (self *Stream) order(p Index, n Index) int64 {
    var lo int64
    var hi int64

    /* empty stream */
    if p == Nil && n == Nil {
        return 0
    }

    /* find the available gap */
    switch {
        case p == Nil : lo, hi = self.nodes[n].ord - 2 * _ORD_gap, self.nodes[n].ord
        case n == Nil : lo, hi = self.nodes[p].ord, self.nodes[p].ord + 2 * _ORD_gap
        default       : lo, hi = self.nodes[p].ord, self.nodes[n].ord
    }

    /* gap is exhausted, spread the keys out and retry */
    if mid := lo + (hi - lo) / 2; mid != lo && mid != hi {
        return mid
    } else {
        self.renumber()
        return self.order(p, n)
    }
}

func (self *Stream) link(i Index, p Index, n Index) {
    ord := self.order(p, n)
    self.nodes[i].ord = ord
    self.nodes[i].prev = p
    self.nodes[i].next = n

    /* link with the predecessor */
    if p == Nil {
        self.head = i
    } else {
        self.nodes[p].next = i
    }

    /* link with the successor */
    if n == Nil {
        self.tail = i
    } else {
        self.nodes[n].prev = i
    }

    /* bind the label if any */
    self.size++
    self.bind(i)
}

// Append adds an instruction to the end of the stream.
func (self *Stream) Append(ins Instr) Index {
    i := self.alloc(ins)
    self.link(i, self.tail, Nil)
    return i
}

// InsertBefore inserts an instruction before at. Inserting before Nil appends.
func (self *Stream) InsertBefore(at Index, ins Instr) Index {
    if at == Nil {
        return self.Append(ins)
    } else if !self.node(at).live {
        panic(fmt.Sprintf("isa: insert before dead instruction #%d", at))
    } else {
        i := self.alloc(ins)
        self.link(i, self.nodes[at].prev, at)
        return i
    }
}

// InsertAfter inserts an instruction after at. Inserting after Nil prepends.
func (self *Stream) InsertAfter(at Index, ins Instr) Index {
    if at == Nil {
        i := self.alloc(ins)
        self.link(i, Nil, self.head)
        return i
    } else if !self.node(at).live {
        panic(fmt.Sprintf("isa: insert after dead instruction #%d", at))
    } else {
        i := self.alloc(ins)
        self.link(i, at, self.nodes[at].next)
        return i
    }
}

// Delete removes the instruction at i. The slot stays dead until Reclaim.
func (self *Stream) Delete(i Index) {
    p := self.node(i)
    q := p.prev
    n := p.next

    /* already deleted */
    if !p.live {
        panic(fmt.Sprintf("isa: instruction #%d has already been deleted", i))
    }

    /* unlink from the predecessor */
    if q == Nil {
        self.head = n
    } else {
        self.nodes[q].next = n
    }

    /* unlink from the successor */
    if n == Nil {
        self.tail = q
    } else {
        self.nodes[n].prev = q
    }

    /* mark as dead, keep the forward link */
    self.unbind(i)
    self.size--
    self.nodes[i].live = false
    self.dead = append(self.dead, i)
}

// Replace substitutes the instruction at i with a new record in a new slot.
// The old slot resumes to the replacement.
func (self *Stream) Replace(i Index, ins Instr) Index {
    n := self.InsertAfter(i, ins)
    self.Delete(i)
    return n
}

// Rewrite changes the instruction at i in place.
func (self *Stream) Rewrite(i Index, ins Instr) {
    if !self.node(i).live {
        panic(fmt.Sprintf("isa: rewrite of dead instruction #%d", i))
    } else {
        self.unbind(i)
        self.nodes[i].ins = ins
        self.bind(i)
    }
}

// Reclaim returns every dead slot to the free list. Indexes of deleted
// instructions must not be used after this.
func (self *Stream) Reclaim() {
    for _, i := range self.dead {
        self.nodes[i] = node { prev: Nil, next: Nil }
        self.free.Push(i)
    }
    self.dead = self.dead[:0]
}

// ForEach calls fn on every live instruction in order.
func (self *Stream) ForEach(fn func(i Index, ins Instr)) {
    for i := self.head; i != Nil; i = self.nodes[i].next {
        fn(i, self.nodes[i].ins)
    }
}

// Instrs returns a copy of every live instruction in order.
func (self *Stream) Instrs() []Instr {
    ret := make([]Instr, 0, self.size)
    self.ForEach(func(_ Index, ins Instr) { ret = append(ret, ins) })
    return ret
}

// Clone returns a deep copy of the stream, labels included. Indexes are not
// preserved.
func (self *Stream) Clone() *Stream {
    ret := NewStream()
    ret.label = ret.label[:1]

    /* copy the label table, unplaced */
    for _, lb := range self.label[1:] {
        ret.names[lb.name] = Label(len(ret.label))
        ret.label = append(ret.label, label { name: lb.name, at: Nil })
    }

    /* copy all the instructions */
    self.ForEach(func(_ Index, ins Instr) {
        ret.Append(ins.Clone())
    })
    return ret
}

// Verify checks the structural integrity of the stream.
func (self *Stream) Verify() error {
    n := 0
    p := Nil

    /* walk the stream forward */
    for i := self.head; i != Nil; p, i = i, self.nodes[i].next {
        if n++; n > len(self.nodes) {
            return errors.New("isa: stream is cyclic")
        }

        /* check the record */
        if int(i) >= len(self.nodes) {
            return errors.Newf("isa: link to invalid slot #%d", i)
        } else if !self.nodes[i].live {
            return errors.Newf("isa: dead instruction #%d is still linked", i)
        } else if self.nodes[i].prev != p {
            return errors.Newf("isa: broken backward link at #%d", i)
        } else if p != Nil && self.nodes[p].ord >= self.nodes[i].ord {
            return errors.Newf("isa: order key of #%d is not increasing", i)
        }

        /* check the branch targets */
        if ins := self.nodes[i].ins; ins.Op.Has(S_label) && ins.Op != OP_LABEL {
            if t := self.Target(ins.Lb); t == Nil {
                return errors.Newf("isa: %s at #%d refers to unplaced label %s", ins.Op, i, self.LabelName(ins.Lb))
            }
        } else if ins.Op == OP_LABEL && self.Target(ins.Lb) != i {
            return errors.Newf("isa: label %s at #%d is not bound", self.LabelName(ins.Lb), i)
        }
    }

    /* check the tail and size */
    if p != self.tail {
        return errors.Newf("isa: tail #%d does not match the last instruction #%d", self.tail, p)
    } else if n != self.size {
        return errors.Newf("isa: stream size %d does not match %d linked instructions", self.size, n)
    } else {
        return nil
    }
}

func (self *Stream) String() string {
    return self.Disassemble()
}
