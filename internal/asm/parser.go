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

package asm

import (
    `bufio`
    `io`
    `strconv`
    `strings`

    `github.com/cockroachdb/errors`
    `github.com/oleiade/lane`

    `github.com/cloudwego/zpeep/isa`
)

type _LabelRef struct {
    name string
    line int
}

// Parser assembles the textual form produced by isa.Stream.Disassemble back
// into an instruction stream.
//
//     L1:
//         LR      r1,r2
//         L       r3,8(r4,r5)
//         BRC     E,L1 {r6,r7}
//         LR      r1,r1 !fill
//
// Anything after a '#' is a comment.
type Parser struct {
    b    *isa.Builder
    line int
    defs map[string]int
    uses *lane.Queue
}

func NewParser() *Parser {
    return &Parser {
        b    : isa.NewBuilder(),
        defs : make(map[string]int),
        uses : lane.NewQueue(),
    }
}

// Assemble parses a complete program.
func Assemble(src string) (*isa.Stream, error) {
    return AssembleReader(strings.NewReader(src))
}

// AssembleReader parses a complete program from r.
func AssembleReader(r io.Reader) (*isa.Stream, error) {
    p := NewParser()
    sc := bufio.NewScanner(r)

    /* parse line by line */
    for sc.Scan() {
        if err := p.Feed(sc.Text()); err != nil {
            return nil, err
        }
    }

    /* check for read errors */
    if err := sc.Err(); err != nil {
        return nil, errors.Wrap(err, "asm: read source")
    } else {
        return p.Finish()
    }
}

func (self *Parser) errorf(msg string, args ...interface{}) error {
    return errors.Wrapf(errors.Newf(msg, args...), "asm: line %d", self.line)
}

// Feed parses a single line of source.
func (self *Parser) Feed(src string) error {
    self.line++

    /* strip the comments */
    if i := strings.IndexByte(src, '#'); i >= 0 {
        src = src[:i]
    }

    /* skip empty lines */
    if src = strings.TrimSpace(src); src == "" {
        return nil
    }

    /* label definitions */
    if strings.HasSuffix(src, ":") && !strings.ContainsAny(src, " \t,") {
        return self.label(strings.TrimSuffix(src, ":"))
    } else {
        return self.instr(src)
    }
}

// Finish checks the label references and returns the stream.
func (self *Parser) Finish() (*isa.Stream, error) {
    for !self.uses.Empty() {
        if v := self.uses.Dequeue().(_LabelRef); !self.defined(v.name) {
            self.line = v.line
            return nil, self.errorf("undefined label %q", v.name)
        }
    }
    return self.b.Build(), nil
}

func (self *Parser) defined(name string) bool {
    _, ok := self.defs[name]
    return ok
}

func (self *Parser) label(name string) error {
    if name == "" {
        return self.errorf("empty label name")
    } else if ln, ok := self.defs[name]; ok {
        return self.errorf("label %q has already been defined at line %d", name, ln)
    } else {
        self.defs[name] = self.line
        self.b.Label(name)
        return nil
    }
}

func (self *Parser) instr(src string) error {
    var err error
    var deps []isa.Reg
    var flags isa.Flags

    /* split the mnemonic */
    name := src
    rest := ""
    if i := strings.IndexAny(src, " \t"); i >= 0 {
        name, rest = src[:i], src[i + 1:]
    }

    /* look up the opcode */
    op, ok := isa.OpByName(strings.ToUpper(name))
    if !ok || op == isa.OP_LABEL {
        return self.errorf("unknown instruction %q", name)
    }

    /* dependency registers */
    if i := strings.IndexByte(rest, '{'); i >= 0 {
        j := strings.IndexByte(rest[i:], '}')
        if j < 0 {
            return self.errorf("unterminated dependency list")
        }

        /* parse every register */
        if deps, err = self.regs(rest[i + 1:i + j]); err != nil {
            return err
        }

        /* cut the list out */
        rest = rest[:i] + rest[i + j + 1:]
    }

    /* instruction flags */
    ops := ""
    for _, f := range strings.Fields(rest) {
        if !strings.HasPrefix(f, "!") {
            ops += f
        } else if v, ok := isa.FlagByName(f[1:]); ok {
            flags |= v
        } else {
            return self.errorf("unknown instruction flag %q", f)
        }
    }

    /* parse the operands */
    ins, to, err := self.operands(op, split(ops))
    if err != nil {
        return err
    }

    /* emit the instruction */
    if ins.Flags = flags; op.Has(isa.S_label) {
        self.uses.Enqueue(_LabelRef { name: to, line: self.line })
        self.b.Branch(ins, to)
    } else {
        self.b.Emit(ins)
    }

    /* add the dependencies */
    if len(deps) != 0 {
        self.b.With(deps...)
    }
    return nil
}

func split(src string) []string {
    n := 0
    p := 0
    var ret []string

    /* nothing to split */
    if src == "" {
        return nil
    }

    /* split at top-level commas */
    for i, c := range src {
        switch {
            case c == '('           : n++
            case c == ')'           : n--
            case c == ',' && n == 0 : ret, p = append(ret, src[p:i]), i + 1
        }
    }
    return append(ret, src[p:])
}

func (self *Parser) operands(op isa.OpCode, args []string) (isa.Instr, string, error) {
    var err error
    var to string

    /* operand slots in textual order */
    ins := isa.Instr { Op: op }
    sh := op.Shape()
    cc := sh & (isa.S_cond | isa.S_mask) != 0
    ccfirst := cc && sh & isa.S_r1 == 0

    /* fetch the next operand */
    next := func(what string) (string, error) {
        if len(args) == 0 {
            return "", self.errorf("%s: missing %s operand", op, what)
        } else {
            v := args[0]
            args = args[1:]
            return v, nil
        }
    }

    /* condition first */
    if ccfirst {
        if err = self.cond(&ins, next); err != nil {
            return ins, "", err
        }
    }

    /* register operands */
    for _, v := range []struct {
        s isa.Shape
        r *isa.Reg
        n string
    } {
        { isa.S_r1, &ins.R1, "r1" },
        { isa.S_r2, &ins.R2, "r2" },
        { isa.S_r3, &ins.R3, "r3" },
    } {
        if sh & v.s != 0 {
            var s string
            if s, err = next(v.n); err != nil {
                return ins, "", err
            } else if *v.r, err = self.reg(s); err != nil {
                return ins, "", err
            }
        }
    }

    /* memory operand */
    if sh & isa.S_mem != 0 {
        var s string
        if s, err = next("memory"); err != nil {
            return ins, "", err
        } else if ins.Mem, err = self.mem(s); err != nil {
            return ins, "", err
        }
    }

    /* immediate operand */
    if sh & isa.S_imm != 0 {
        var s string
        if s, err = next("immediate"); err != nil {
            return ins, "", err
        } else if ins.Imm, err = strconv.ParseInt(s, 0, 64); err != nil {
            return ins, "", self.errorf("invalid immediate %q", s)
        }
    }

    /* condition after the operands */
    if cc && !ccfirst {
        if err = self.cond(&ins, next); err != nil {
            return ins, "", err
        }
    }

    /* label and symbol */
    if sh & isa.S_label != 0 {
        if to, err = next("label"); err != nil {
            return ins, "", err
        }
    }

    /* symbol */
    if sh & isa.S_sym != 0 {
        if ins.Sym, err = next("symbol"); err != nil {
            return ins, "", err
        }
    }

    /* should not have any operands left */
    if len(args) != 0 {
        return ins, "", self.errorf("%s: too many operands", op)
    } else {
        return ins, to, nil
    }
}

func (self *Parser) cond(ins *isa.Instr, next func(string) (string, error)) error {
    s, err := next("condition")
    if err != nil {
        return err
    }

    /* numeric masks are also accepted */
    cc, ok := isa.CondByName(strings.ToUpper(s))
    if !ok {
        if v, err := strconv.ParseUint(s, 0, 4); err != nil {
            return self.errorf("invalid condition %q", s)
        } else {
            cc = isa.Cond(v)
        }
    }

    /* select the field */
    if ins.Op.Has(isa.S_cond) {
        ins.Cc = cc
    } else {
        ins.M3 = cc.Mask()
    }
    return nil
}

func (self *Parser) reg(s string) (isa.Reg, error) {
    if r, err := isa.ParseReg(s); err != nil {
        return 0, self.errorf("invalid register %q", s)
    } else {
        return r, nil
    }
}

func (self *Parser) regs(s string) ([]isa.Reg, error) {
    var ret []isa.Reg
    for _, v := range strings.Split(s, ",") {
        if v = strings.TrimSpace(v); v != "" {
            if r, err := self.reg(v); err != nil {
                return nil, err
            } else {
                ret = append(ret, r)
            }
        }
    }
    return ret, nil
}

func (self *Parser) mem(s string) (isa.MemRef, error) {
    var err error
    var mem isa.MemRef

    /* displacement only */
    i := strings.IndexByte(s, '(')
    if i < 0 {
        return mem, self.disp(&mem, s)
    }

    /* must be properly closed */
    if !strings.HasSuffix(s, ")") {
        return mem, self.errorf("invalid memory operand %q", s)
    }

    /* displacement */
    if err = self.disp(&mem, s[:i]); err != nil {
        return mem, err
    }

    /* D(B) or D(X,B) */
    switch rs := strings.Split(s[i + 1:len(s) - 1], ","); len(rs) {
        case 1: {
            mem.Base, err = self.reg(rs[0])
        }
        case 2: {
            if mem.Index, err = self.reg(rs[0]); err == nil {
                mem.Base, err = self.reg(rs[1])
            }
        }
        default: {
            err = self.errorf("invalid memory operand %q", s)
        }
    }
    return mem, err
}

func (self *Parser) disp(mem *isa.MemRef, s string) error {
    if s == "" {
        return nil
    } else if v, err := strconv.ParseInt(s, 0, 32); err != nil {
        return self.errorf("invalid displacement %q", s)
    } else {
        mem.Disp = int32(v)
        return nil
    }
}
