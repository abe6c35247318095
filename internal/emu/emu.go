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

package emu

import (
    `math`
    `math/bits`

    `github.com/cockroachdb/errors`

    `github.com/cloudwego/zpeep/isa`
)

const (
    _DefaultLimit = 1 << 16
    _SymbolBase   = 0x10000
    _ReturnMarker = 0x7ffff000
)

var (
    ErrStepLimit   = errors.New("emu: step limit exceeded")
    ErrUnsupported = errors.New("emu: unsupported instruction")
)

// Emulator interprets an instruction stream on a simplified machine model:
// 64-bit general registers of which the 32-bit operations only touch the low
// half, a sparse byte addressed big-endian memory, and calls that only record
// the callee.
type Emulator struct {
    PC      isa.Index
    CC      uint8
    Gr      [16]uint64
    Fr      [16]uint64
    Ar      [16]uint32
    Mem     map[uint64]byte
    Sym     map[string]uint64
    Calls   []string
    Trapped bool
    Limit   int
    Steps   int

    s  *isa.Stream
    ln bool
}

// Load prepares an emulator to run s from its first instruction.
func Load(s *isa.Stream) *Emulator {
    return &Emulator {
        s     : s,
        PC    : s.Head(),
        Mem   : make(map[uint64]byte),
        Sym   : make(map[string]uint64),
        Limit : _DefaultLimit,
    }
}

var dispatchTab = [...]func(e *Emulator, p *isa.Instr) error {
    isa.OP_LABEL     : (*Emulator).emu_nop,
    isa.OP_FENCE     : (*Emulator).emu_nop,
    isa.OP_BBSTART   : (*Emulator).emu_nop,
    isa.OP_BBEND     : (*Emulator).emu_nop,
    isa.OP_DCB       : (*Emulator).emu_nop,
    isa.OP_ASSOCREGS : (*Emulator).emu_nop,
    isa.OP_DEPEND    : (*Emulator).emu_nop,
    isa.OP_LR        : (*Emulator).emu_OP_LR,
    isa.OP_LGR       : (*Emulator).emu_OP_LGR,
    isa.OP_LDR       : (*Emulator).emu_OP_LDR,
    isa.OP_CPYA      : (*Emulator).emu_OP_CPYA,
    isa.OP_LTR       : (*Emulator).emu_OP_LTR,
    isa.OP_LTGR      : (*Emulator).emu_OP_LTGR,
    isa.OP_LHR       : (*Emulator).emu_OP_LHR,
    isa.OP_LCR       : (*Emulator).emu_OP_LCR,
    isa.OP_LCGR      : (*Emulator).emu_OP_LCGR,
    isa.OP_LCGFR     : (*Emulator).emu_OP_LCGFR,
    isa.OP_LHI       : (*Emulator).emu_OP_LHI,
    isa.OP_LGHI      : (*Emulator).emu_OP_LGHI,
    isa.OP_CHI       : (*Emulator).emu_cmp,
    isa.OP_CGHI      : (*Emulator).emu_cmp,
    isa.OP_AHI       : (*Emulator).emu_arith,
    isa.OP_AGHI      : (*Emulator).emu_arith,
    isa.OP_AR        : (*Emulator).emu_arith,
    isa.OP_AGR       : (*Emulator).emu_arith,
    isa.OP_ALR       : (*Emulator).emu_arith,
    isa.OP_ALGR      : (*Emulator).emu_arith,
    isa.OP_SR        : (*Emulator).emu_arith,
    isa.OP_SGR       : (*Emulator).emu_arith,
    isa.OP_SLR       : (*Emulator).emu_arith,
    isa.OP_SLGR      : (*Emulator).emu_arith,
    isa.OP_NR        : (*Emulator).emu_arith,
    isa.OP_NGR       : (*Emulator).emu_arith,
    isa.OP_OR        : (*Emulator).emu_arith,
    isa.OP_OGR       : (*Emulator).emu_arith,
    isa.OP_XR        : (*Emulator).emu_arith,
    isa.OP_XGR       : (*Emulator).emu_arith,
    isa.OP_DR        : (*Emulator).emu_OP_DR,
    isa.OP_DLR       : (*Emulator).emu_OP_DLR,
    isa.OP_DLGR      : (*Emulator).emu_OP_DLGR,
    isa.OP_ARK       : (*Emulator).emu_arith,
    isa.OP_AGRK      : (*Emulator).emu_arith,
    isa.OP_ALRK      : (*Emulator).emu_arith,
    isa.OP_ALGRK     : (*Emulator).emu_arith,
    isa.OP_SRK       : (*Emulator).emu_arith,
    isa.OP_SGRK      : (*Emulator).emu_arith,
    isa.OP_SLRK      : (*Emulator).emu_arith,
    isa.OP_SLGRK     : (*Emulator).emu_arith,
    isa.OP_NRK       : (*Emulator).emu_arith,
    isa.OP_NGRK      : (*Emulator).emu_arith,
    isa.OP_ORK       : (*Emulator).emu_arith,
    isa.OP_OGRK      : (*Emulator).emu_arith,
    isa.OP_XRK       : (*Emulator).emu_arith,
    isa.OP_XGRK      : (*Emulator).emu_arith,
    isa.OP_AHIK      : (*Emulator).emu_arith,
    isa.OP_AGHIK     : (*Emulator).emu_arith,
    isa.OP_SLL       : (*Emulator).emu_shift,
    isa.OP_SLA       : (*Emulator).emu_shift,
    isa.OP_SRA       : (*Emulator).emu_shift,
    isa.OP_SRL       : (*Emulator).emu_shift,
    isa.OP_SLLK      : (*Emulator).emu_shift,
    isa.OP_SLAK      : (*Emulator).emu_shift,
    isa.OP_SRAK      : (*Emulator).emu_shift,
    isa.OP_SRLK      : (*Emulator).emu_shift,
    isa.OP_CR        : (*Emulator).emu_cmp,
    isa.OP_CGR       : (*Emulator).emu_cmp,
    isa.OP_CLR       : (*Emulator).emu_cmp,
    isa.OP_CLGR      : (*Emulator).emu_cmp,
    isa.OP_CGFR      : (*Emulator).emu_cmp,
    isa.OP_CLGFR     : (*Emulator).emu_cmp,
    isa.OP_CHLR      : (*Emulator).emu_cmp,
    isa.OP_CLHLR     : (*Emulator).emu_cmp,
    isa.OP_CRJ       : (*Emulator).emu_cmpjump,
    isa.OP_CGRJ      : (*Emulator).emu_cmpjump,
    isa.OP_CLRJ      : (*Emulator).emu_cmpjump,
    isa.OP_CLGRJ     : (*Emulator).emu_cmpjump,
    isa.OP_CIJ       : (*Emulator).emu_cmpjump,
    isa.OP_CGIJ      : (*Emulator).emu_cmpjump,
    isa.OP_CLIJ      : (*Emulator).emu_cmpjump,
    isa.OP_CLGIJ     : (*Emulator).emu_cmpjump,
    isa.OP_CRB       : (*Emulator).emu_cmpjump,
    isa.OP_CGRB      : (*Emulator).emu_cmpjump,
    isa.OP_CLRB      : (*Emulator).emu_cmpjump,
    isa.OP_CLGRB     : (*Emulator).emu_cmpjump,
    isa.OP_CRT       : (*Emulator).emu_cmpjump,
    isa.OP_CGRT      : (*Emulator).emu_cmpjump,
    isa.OP_CLRT      : (*Emulator).emu_cmpjump,
    isa.OP_CLGRT     : (*Emulator).emu_cmpjump,
    isa.OP_LOCR      : (*Emulator).emu_OP_LOCR,
    isa.OP_LOCGR     : (*Emulator).emu_OP_LOCGR,
    isa.OP_MADBR     : (*Emulator).emu_OP_MADBR,
    isa.OP_MSDBR     : (*Emulator).emu_OP_MSDBR,
    isa.OP_BRC       : (*Emulator).emu_OP_BRC,
    isa.OP_BRCL      : (*Emulator).emu_OP_BRC,
    isa.OP_BCR       : (*Emulator).emu_OP_BCR,
    isa.OP_BRASL     : (*Emulator).emu_OP_BRASL,
    isa.OP_L         : (*Emulator).emu_OP_L,
    isa.OP_LG        : (*Emulator).emu_OP_LG,
    isa.OP_LD        : (*Emulator).emu_OP_LD,
    isa.OP_ST        : (*Emulator).emu_OP_ST,
    isa.OP_STG       : (*Emulator).emu_OP_STG,
    isa.OP_STD       : (*Emulator).emu_OP_STD,
    isa.OP_LA        : (*Emulator).emu_OP_LA,
    isa.OP_LAY       : (*Emulator).emu_OP_LA,
    isa.OP_LM        : (*Emulator).emu_OP_LM,
    isa.OP_LMG       : (*Emulator).emu_OP_LMG,
    isa.OP_STM       : (*Emulator).emu_OP_STM,
    isa.OP_STMG      : (*Emulator).emu_OP_STMG,
    isa.OP_LARL      : (*Emulator).emu_OP_LARL,
    isa.OP_TBEGIN    : (*Emulator).emu_OP_TEND,
    isa.OP_TBEGINC   : (*Emulator).emu_OP_TEND,
    isa.OP_TEND      : (*Emulator).emu_OP_TEND,
}

func (self *Emulator) gr32(r isa.Reg) uint32 {
    return uint32(self.Gr[r.Num()])
}

func (self *Emulator) set32(r isa.Reg, v uint32) {
    self.Gr[r.Num()] = self.Gr[r.Num()] &^ math.MaxUint32 | uint64(v)
}

func (self *Emulator) jump(lb isa.Label) {
    self.PC = self.s.Target(lb)
    self.ln = false
}

func (self *Emulator) signed(v int64) {
    switch {
        case v == 0 : self.CC = 0
        case v < 0  : self.CC = 1
        default     : self.CC = 2
    }
}

func (self *Emulator) emu_nop(_ *isa.Instr) error {
    return nil
}

func (self *Emulator) emu_OP_LR(p *isa.Instr) error {
    self.set32(p.R1, self.gr32(p.R2))
    return nil
}

func (self *Emulator) emu_OP_LGR(p *isa.Instr) error {
    self.Gr[p.R1.Num()] = self.Gr[p.R2.Num()]
    return nil
}

func (self *Emulator) emu_OP_LDR(p *isa.Instr) error {
    self.Fr[p.R1.Num()] = self.Fr[p.R2.Num()]
    return nil
}

func (self *Emulator) emu_OP_CPYA(p *isa.Instr) error {
    self.Ar[p.R1.Num()] = self.Ar[p.R2.Num()]
    return nil
}

func (self *Emulator) emu_OP_LTR(p *isa.Instr) error {
    v := self.gr32(p.R2)
    self.set32(p.R1, v)
    self.signed(int64(int32(v)))
    return nil
}

func (self *Emulator) emu_OP_LTGR(p *isa.Instr) error {
    v := self.Gr[p.R2.Num()]
    self.Gr[p.R1.Num()] = v
    self.signed(int64(v))
    return nil
}

func (self *Emulator) emu_OP_LHR(p *isa.Instr) error {
    self.set32(p.R1, uint32(int32(int16(self.gr32(p.R2)))))
    return nil
}

func (self *Emulator) emu_OP_LCR(p *isa.Instr) error {
    v := int32(self.gr32(p.R2))
    self.set32(p.R1, uint32(-v))

    /* complementing the maximum negative number overflows */
    if v == math.MinInt32 {
        self.CC = 3
    } else {
        self.signed(-int64(v))
    }
    return nil
}

func (self *Emulator) emu_OP_LCGR(p *isa.Instr) error {
    v := int64(self.Gr[p.R2.Num()])
    self.Gr[p.R1.Num()] = uint64(-v)

    /* complementing the maximum negative number overflows */
    if v == math.MinInt64 {
        self.CC = 3
    } else {
        self.signed(-v)
    }
    return nil
}

func (self *Emulator) emu_OP_LCGFR(p *isa.Instr) error {
    v := -int64(int32(self.gr32(p.R2)))
    self.Gr[p.R1.Num()] = uint64(v)
    self.signed(v)
    return nil
}

func (self *Emulator) emu_OP_LHI(p *isa.Instr) error {
    self.set32(p.R1, uint32(int32(p.Imm)))
    return nil
}

func (self *Emulator) emu_OP_LGHI(p *isa.Instr) error {
    self.Gr[p.R1.Num()] = uint64(p.Imm)
    return nil
}

func (self *Emulator) emu_OP_DR(p *isa.Instr) error {
    hi := self.gr32(p.R1)
    lo := self.gr32(p.R1.Pair())
    dv := int64(int32(self.gr32(p.R2)))
    nv := int64(uint64(hi) << 32 | uint64(lo))

    /* fixed-point divide exception */
    if dv == 0 || nv / dv > math.MaxInt32 || nv / dv < math.MinInt32 {
        return self.trap()
    }

    /* remainder and quotient */
    self.set32(p.R1, uint32(nv % dv))
    self.set32(p.R1.Pair(), uint32(nv / dv))
    return nil
}

func (self *Emulator) emu_OP_DLR(p *isa.Instr) error {
    hi := self.gr32(p.R1)
    lo := self.gr32(p.R1.Pair())
    dv := uint64(self.gr32(p.R2))
    nv := uint64(hi) << 32 | uint64(lo)

    /* fixed-point divide exception */
    if dv == 0 || nv / dv > math.MaxUint32 {
        return self.trap()
    }

    /* remainder and quotient */
    self.set32(p.R1, uint32(nv % dv))
    self.set32(p.R1.Pair(), uint32(nv / dv))
    return nil
}

func (self *Emulator) emu_OP_DLGR(p *isa.Instr) error {
    hi := self.Gr[p.R1.Num()]
    lo := self.Gr[p.R1.Pair().Num()]
    dv := self.Gr[p.R2.Num()]

    /* fixed-point divide exception */
    if dv == 0 || hi >= dv {
        return self.trap()
    }

    /* remainder and quotient */
    q, r := bits.Div64(hi, lo, dv)
    self.Gr[p.R1.Num()] = r
    self.Gr[p.R1.Pair().Num()] = q
    return nil
}

func (self *Emulator) emu_OP_LOCR(p *isa.Instr) error {
    if isa.Cond(p.M3).Selects(self.CC) {
        self.set32(p.R1, self.gr32(p.R2))
    }
    return nil
}

func (self *Emulator) emu_OP_LOCGR(p *isa.Instr) error {
    if isa.Cond(p.M3).Selects(self.CC) {
        self.Gr[p.R1.Num()] = self.Gr[p.R2.Num()]
    }
    return nil
}

func (self *Emulator) fr(r isa.Reg) float64 {
    return math.Float64frombits(self.Fr[r.Num()])
}

func (self *Emulator) emu_OP_MADBR(p *isa.Instr) error {
    self.Fr[p.R1.Num()] = math.Float64bits(self.fr(p.R1) + self.fr(p.R3) * self.fr(p.R2))
    return nil
}

func (self *Emulator) emu_OP_MSDBR(p *isa.Instr) error {
    self.Fr[p.R1.Num()] = math.Float64bits(self.fr(p.R3) * self.fr(p.R2) - self.fr(p.R1))
    return nil
}

func (self *Emulator) emu_OP_BRC(p *isa.Instr) error {
    if p.Cc.Selects(self.CC) {
        self.jump(p.Lb)
    }
    return nil
}

func (self *Emulator) emu_OP_BCR(p *isa.Instr) error {
    if p.Cc.Mask() == 0 || !p.Cc.Selects(self.CC) {
        return nil
    } else {
        return errors.Wrap(ErrUnsupported, "computed branch")
    }
}

func (self *Emulator) emu_OP_BRASL(p *isa.Instr) error {
    self.Calls = append(self.Calls, p.Sym)
    self.Gr[p.R1.Num()] = _ReturnMarker
    return nil
}

func (self *Emulator) emu_OP_LA(p *isa.Instr) error {
    self.Gr[p.R1.Num()] = self.Address(p.Mem)
    return nil
}

func (self *Emulator) emu_OP_LARL(p *isa.Instr) error {
    addr, ok := self.Sym[p.Sym]
    if !ok {
        addr = _SymbolBase + uint64(len(self.Sym)) * 0x1000
        self.Sym[p.Sym] = addr
    }
    self.Gr[p.R1.Num()] = addr
    return nil
}

func (self *Emulator) emu_OP_TEND(_ *isa.Instr) error {
    self.CC = 0
    return nil
}

func (self *Emulator) trap() error {
    self.Trapped = true
    self.PC = isa.Nil
    self.ln = false
    return nil
}

// Step executes a single instruction.
func (self *Emulator) Step() error {
    p := self.s.At(self.PC)
    fn := (func(*Emulator, *isa.Instr) error)(nil)

    /* look up the handler */
    if int(p.Op) < len(dispatchTab) {
        fn = dispatchTab[p.Op]
    }

    /* not implemented */
    if fn == nil {
        return errors.Wrapf(ErrUnsupported, "%s at #%d", p.Op, self.PC)
    }

    /* check the step limit */
    if self.Steps >= self.Limit {
        return ErrStepLimit
    }

    /* execute and advance the PC if needed */
    self.ln = true
    self.Steps++

    /* dispatch the instruction */
    if err := fn(self, &p); err != nil {
        return errors.Wrapf(err, "at #%d", self.PC)
    } else if self.ln {
        self.PC = self.s.Next(self.PC)
    }
    return nil
}

// Run executes until the end of the stream, a trap or an error.
func (self *Emulator) Run() error {
    for self.PC != isa.Nil {
        if err := self.Step(); err != nil {
            return err
        }
    }
    return nil
}
