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
	"os"
	"strconv"

	"github.com/cloudwego/zpeep/isa"
)

const (
	_DefaultMoveWindow   = 20 // forward window of move reduction
	_DefaultFusionWindow = 4  // forward window of distinct-operand fusion
	_DefaultAGIWindow    = 4  // lookahead for address generation interlocks
	_DefaultDefWindow    = 3  // lookbehind for a recent definition
)

var (
	MoveWindow   = parseOrDefault("ZPEEP_MOVE_WINDOW", _DefaultMoveWindow, 1)
	FusionWindow = parseOrDefault("ZPEEP_FUSION_WINDOW", _DefaultFusionWindow, 1)
	AGIWindow    = parseOrDefault("ZPEEP_AGI_WINDOW", _DefaultAGIWindow, 1)
	DefWindow    = parseOrDefault("ZPEEP_DEF_WINDOW", _DefaultDefWindow, 1)
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("zpeep: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("zpeep: value too small for " + key)
	} else {
		return ret
	}
}

// DefaultPreserved is the set of callee-saved registers of the standard
// linkage: r6 through r13, r15 and the upper half of the floating-point
// registers.
var DefaultPreserved = isa.RegSet(0).Add(
	isa.R6, isa.R7, isa.R8, isa.R9, isa.R10, isa.R11, isa.R12, isa.R13, isa.R15,
	isa.F8, isa.F9, isa.F10, isa.F11, isa.F12, isa.F13, isa.F14, isa.F15,
)
