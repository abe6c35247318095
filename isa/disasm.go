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
    `strconv`
    `strings`
)

var _FlagNames = [...]struct {
    f Flags
    s string
} {
    { F_catch   , "catch"   },
    { F_fill    , "fill"    },
    { F_litpool , "litpool" },
}

// FlagByName looks up an instruction flag by its textual name.
func FlagByName(name string) (Flags, bool) {
    for _, v := range _FlagNames {
        if v.s == name {
            return v.f, true
        }
    }
    return 0, false
}

func format(ins Instr, name func(Label) string) string {
    var ops []string
    var buf strings.Builder

    /* labels are printed as definitions */
    if ins.Op == OP_LABEL {
        buf.WriteString(name(ins.Lb))
        buf.WriteByte(':')
    } else {
        sh := ins.Op.Shape()
        cc := ""

        /* condition code mask */
        if sh & S_cond != 0 {
            cc = ins.Cc.String()
        } else if sh & S_mask != 0 {
            cc = Cond(ins.M3 & 0x0f).String()
        }

        /* unconditional branches put the condition first */
        if cc != "" && sh & S_r1 == 0 {
            ops = append(ops, cc)
            cc = ""
        }

        /* register operands */
        if sh & S_r1  != 0 { ops = append(ops, ins.R1.String()) }
        if sh & S_r2  != 0 { ops = append(ops, ins.R2.String()) }
        if sh & S_r3  != 0 { ops = append(ops, ins.R3.String()) }
        if sh & S_mem != 0 { ops = append(ops, ins.Mem.String()) }
        if sh & S_imm != 0 { ops = append(ops, strconv.FormatInt(ins.Imm, 10)) }
        if cc != ""        { ops = append(ops, cc) }

        /* symbolic operands */
        if sh & S_label != 0 { ops = append(ops, name(ins.Lb)) }
        if sh & S_sym   != 0 { ops = append(ops, ins.Sym) }

        /* format the instruction */
        if buf.WriteString(ins.Op.String()); len(ops) != 0 {
            buf.WriteString(strings.Repeat(" ", 8 - len(ins.Op.String()) % 8))
            buf.WriteString(strings.Join(ops, ","))
        }
    }

    /* dependency registers */
    if len(ins.Deps) != 0 {
        rs := make([]string, 0, len(ins.Deps))
        for _, r := range ins.Deps { rs = append(rs, r.String()) }
        buf.WriteString(" {" + strings.Join(rs, ",") + "}")
    }

    /* instruction flags */
    for _, v := range _FlagNames {
        if ins.Flags & v.f != 0 {
            buf.WriteString(" !" + v.s)
        }
    }
    return buf.String()
}

// Format formats a single instruction, resolving label names with the stream.
func (self *Stream) Format(ins Instr) string {
    return format(ins, self.LabelName)
}

// Disassemble returns the textual form of the stream, one instruction per
// line. Label definitions are not indented.
func (self *Stream) Disassemble() string {
    var buf strings.Builder
    self.ForEach(func(_ Index, ins Instr) {
        if ins.Op != OP_LABEL {
            buf.WriteString("    ")
        }
        buf.WriteString(self.Format(ins))
        buf.WriteByte('\n')
    })
    return buf.String()
}

// Dump is like Disassemble but prefixes every line with the instruction index.
func (self *Stream) Dump() string {
    var buf strings.Builder
    self.ForEach(func(i Index, ins Instr) {
        fmt.Fprintf(&buf, "#%-4d %s\n", i, self.Format(ins))
    })
    return buf.String()
}
