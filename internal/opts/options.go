/*
 * Copyright 2022 CloudWeGo Authors
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

package opts

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cloudwego/zpeep/isa"
)

// Rule identifies a single peephole transformation.
type Rule uint8

const (
	MoveReduction Rule = iota
	TrueCompCompare
	TrueCompCompareBranch
	TrueCompLoadComplement
	DistinctOperands
	BranchForwarding
	ZeroLoadToXOR
	CatchLiteralPoolReload
	NumRules
)

var _RuleNames = [...]string{
	MoveReduction:          "move-reduction",
	TrueCompCompare:        "truecomp-compare",
	TrueCompCompareBranch:  "truecomp-branch",
	TrueCompLoadComplement: "truecomp-loadcomp",
	DistinctOperands:       "distinct-operands",
	BranchForwarding:       "branch-forwarding",
	ZeroLoadToXOR:          "zero-load-to-xor",
	CatchLiteralPoolReload: "catch-reload",
}

func (self Rule) String() string {
	if self < NumRules {
		return _RuleNames[self]
	} else {
		return "rule(" + strconv.Itoa(int(self)) + ")"
	}
}

// ParseRule parses a rule name as printed by Rule.String.
func ParseRule(name string) (Rule, error) {
	for i, v := range _RuleNames {
		if strings.EqualFold(v, name) {
			return Rule(i), nil
		}
	}
	return 0, errors.Newf("unknown peephole rule %q", name)
}

// RuleSet is a set of enabled rules.
type RuleSet uint32

// AllRules contains every rule.
const AllRules = RuleSet(1<<NumRules - 1)

func (self RuleSet) Has(r Rule) bool {
	return self&(1<<r) != 0
}

func (self RuleSet) With(r ...Rule) RuleSet {
	for _, v := range r {
		self |= 1 << v
	}
	return self
}

func (self RuleSet) Without(r ...Rule) RuleSet {
	for _, v := range r {
		self &^= 1 << v
	}
	return self
}

// LiteralPool describes how the literal pool base register is managed.
type LiteralPool struct {
	Reg      isa.Reg
	InUse    bool
	OnDemand bool
}

// Options is the immutable configuration of a single optimizer invocation.
type Options struct {
	Target      isa.Target
	Rules       RuleSet
	Randomize   bool
	Trace       func(line string)
	Permit      func(desc string, at isa.Index) bool
	LiteralPool LiteralPool
	Preserved   isa.RegSet

	MoveWindow   int
	FusionWindow int
	AGIWindow    int
	DefWindow    int
}

func (self *Options) Enabled(r Rule) bool {
	return self.Rules.Has(r)
}

func GetDefaultOptions() Options {
	return Options{
		Target:       isa.Target{Arch: isa.ArchLatest},
		Rules:        AllRules.Without(ZeroLoadToXOR),
		Preserved:    DefaultPreserved,
		LiteralPool:  LiteralPool{Reg: isa.R6},
		MoveWindow:   MoveWindow,
		FusionWindow: FusionWindow,
		AGIWindow:    AGIWindow,
		DefWindow:    DefWindow,
	}
}
