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

package zpeep

import (
	"fmt"
	"log/slog"

	"github.com/cloudwego/zpeep/internal/opts"
	"github.com/cloudwego/zpeep/isa"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// Rule identifies a single peephole transformation.
type Rule = opts.Rule

const (
	MoveReduction          = opts.MoveReduction
	TrueCompCompare        = opts.TrueCompCompare
	TrueCompCompareBranch  = opts.TrueCompCompareBranch
	TrueCompLoadComplement = opts.TrueCompLoadComplement
	DistinctOperands       = opts.DistinctOperands
	BranchForwarding       = opts.BranchForwarding
	ZeroLoadToXOR          = opts.ZeroLoadToXOR
	CatchLiteralPoolReload = opts.CatchLiteralPoolReload
)

// ParseRule parses a rule name, as printed by Rule.String.
func ParseRule(name string) (Rule, error) {
	return opts.ParseRule(name)
}

// WithArch selects the processor generation the code is optimized for.
//
// The default value of this option is the newest supported generation.
func WithArch(arch isa.Arch) Option {
	if arch > isa.ArchLatest {
		panic(fmt.Sprintf("zpeep: invalid processor generation: %d", arch))
	} else {
		return func(o *opts.Options) { o.Target.Arch = arch }
	}
}

// WithZOS marks the code as targeting the z/OS linkage conventions.
func WithZOS(v bool) Option {
	return func(o *opts.Options) { o.Target.ZOS = v }
}

// WithTrace installs a sink for the trace lines of the optimizer. Every
// transformation request produces a line, whether it is permitted or not.
func WithTrace(fn func(line string)) Option {
	return func(o *opts.Options) { o.Trace = fn }
}

// WithLogger sends the trace lines to a structured logger, at debug level.
func WithLogger(logger *slog.Logger) Option {
	if logger == nil {
		panic("zpeep: nil logger")
	} else {
		return func(o *opts.Options) {
			o.Trace = func(line string) { logger.Debug(line, "arch", o.Target.String()) }
		}
	}
}

// WithPermit installs a transformation veto function. It receives the
// description of every transformation before it is performed, returning
// false prevents it.
func WithPermit(fn func(desc string, at isa.Index) bool) Option {
	return func(o *opts.Options) { o.Permit = fn }
}

// WithBisect only permits the first n transformation requests and vetoes all
// the later ones. Bisecting over n narrows a miscompilation down to a single
// transformation.
//
// This option composes with WithPermit if that appears first.
func WithBisect(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("zpeep: invalid bisect limit: %d", n))
	} else {
		return func(o *opts.Options) {
			prev := o.Permit
			o.Permit = func(desc string, at isa.Index) bool {
				if prev != nil && !prev(desc, at) {
					return false
				} else if n <= 0 {
					return false
				} else {
					n--
					return true
				}
			}
		}
	}
}

// WithRandomize randomly skips some of the rules, for testing the code
// generator against slightly different instruction sequences.
func WithRandomize(v bool) Option {
	return func(o *opts.Options) { o.Randomize = v }
}

// DisableRules turns off the given rules.
func DisableRules(rules ...Rule) Option {
	for _, r := range rules {
		if r >= opts.NumRules {
			panic(fmt.Sprintf("zpeep: invalid rule: %d", r))
		}
	}
	return func(o *opts.Options) { o.Rules = o.Rules.Without(rules...) }
}

// EnableRules turns on the given rules. This is the only way to enable the
// rules that are disabled by default (ZeroLoadToXOR).
func EnableRules(rules ...Rule) Option {
	for _, r := range rules {
		if r >= opts.NumRules {
			panic(fmt.Sprintf("zpeep: invalid rule: %d", r))
		}
	}
	return func(o *opts.Options) { o.Rules = o.Rules.With(rules...) }
}

// WithLiteralPool describes the literal pool base register. It matters for
// the catch block reload on z/OS targets older than z10.
func WithLiteralPool(reg isa.Reg, inUse bool, onDemand bool) Option {
	if reg.Kind() != isa.K_gpr || reg.Virtual() {
		panic("zpeep: invalid literal pool register: " + reg.String())
	} else {
		return func(o *opts.Options) { o.LiteralPool = opts.LiteralPool{Reg: reg, InUse: inUse, OnDemand: onDemand} }
	}
}

// WithPreserved sets the registers preserved across calls, dependencies on
// them are reported as modified.
//
// The default value of this option is r6 to r13, r15 and f8 to f15.
func WithPreserved(regs isa.RegSet) Option {
	return func(o *opts.Options) { o.Preserved = regs }
}
