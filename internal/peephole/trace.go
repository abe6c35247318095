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
    `fmt`
    `strings`

    `github.com/cloudwego/zpeep/internal/opts`
    `github.com/cloudwego/zpeep/isa`
)

// Stats counts the committed transformations of each rule.
type Stats [opts.NumRules]int

func (self Stats) Get(r opts.Rule) int {
    return self[r]
}

func (self Stats) Total() int {
    n := 0
    for _, v := range self {
        n += v
    }
    return n
}

func (self Stats) String() string {
    var ss []string
    for i, v := range self {
        if v != 0 {
            ss = append(ss, fmt.Sprintf("%s=%d", opts.Rule(i), v))
        }
    }
    return strings.Join(ss, " ")
}

// Context carries the read-only configuration every rule sees.
type Context struct {
    Opts *opts.Options
}

func (self *Context) tracef(msg string, args ...interface{}) {
    if self.Opts.Trace != nil {
        self.Opts.Trace("peephole: " + fmt.Sprintf(msg, args...))
    }
}

// permit asks whether a transformation may be performed, every request is
// reported to the trace sink.
func (self *Context) permit(desc string, at isa.Index) bool {
    ok := self.Opts.Permit == nil || self.Opts.Permit(desc, at)

    /* report the request */
    if ok {
        self.tracef("%s at #%d", desc, at)
    } else {
        self.tracef("%s at #%d (vetoed)", desc, at)
    }
    return ok
}
