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
    `github.com/cloudwego/zpeep/isa`
)

// Address computes the effective address of a memory reference.
func (self *Emulator) Address(m isa.MemRef) uint64 {
    addr := uint64(int64(m.Disp))
    if m.Base.Valid()  { addr += self.Gr[m.Base.Num()] }
    if m.Index.Valid() { addr += self.Gr[m.Index.Num()] }
    return addr
}

// Read reads n bytes of big-endian memory at addr.
func (self *Emulator) Read(addr uint64, n int) uint64 {
    v := uint64(0)
    for i := 0; i < n; i++ {
        v = v << 8 | uint64(self.Mem[addr + uint64(i)])
    }
    return v
}

// Write stores the low n bytes of v as big-endian memory at addr.
func (self *Emulator) Write(addr uint64, n int, v uint64) {
    for i := n - 1; i >= 0; i-- {
        self.Mem[addr + uint64(i)] = byte(v)
        v >>= 8
    }
}

func (self *Emulator) emu_OP_L(p *isa.Instr) error {
    self.set32(p.R1, uint32(self.Read(self.Address(p.Mem), 4)))
    return nil
}

func (self *Emulator) emu_OP_LG(p *isa.Instr) error {
    self.Gr[p.R1.Num()] = self.Read(self.Address(p.Mem), 8)
    return nil
}

func (self *Emulator) emu_OP_LD(p *isa.Instr) error {
    self.Fr[p.R1.Num()] = self.Read(self.Address(p.Mem), 8)
    return nil
}

func (self *Emulator) emu_OP_ST(p *isa.Instr) error {
    self.Write(self.Address(p.Mem), 4, self.Gr[p.R1.Num()])
    return nil
}

func (self *Emulator) emu_OP_STG(p *isa.Instr) error {
    self.Write(self.Address(p.Mem), 8, self.Gr[p.R1.Num()])
    return nil
}

func (self *Emulator) emu_OP_STD(p *isa.Instr) error {
    self.Write(self.Address(p.Mem), 8, self.Fr[p.R1.Num()])
    return nil
}

func (self *Emulator) emu_OP_LM(p *isa.Instr) error {
    addr := self.Address(p.Mem)
    for _, r := range p.DefRegs() {
        self.set32(r, uint32(self.Read(addr, 4)))
        addr += 4
    }
    return nil
}

func (self *Emulator) emu_OP_LMG(p *isa.Instr) error {
    addr := self.Address(p.Mem)
    for _, r := range p.DefRegs() {
        self.Gr[r.Num()] = self.Read(addr, 8)
        addr += 8
    }
    return nil
}

func (self *Emulator) storeMultiple(p *isa.Instr, n int) {
    addr := self.Address(p.Mem)
    for i, c := 0, (p.R3.Num() - p.R1.Num()) & 15; i <= c; i++ {
        self.Write(addr, n, self.Gr[p.R1.Offset(i).Num()])
        addr += uint64(n)
    }
}

func (self *Emulator) emu_OP_STM(p *isa.Instr) error {
    self.storeMultiple(p, 4)
    return nil
}

func (self *Emulator) emu_OP_STMG(p *isa.Instr) error {
    self.storeMultiple(p, 8)
    return nil
}
