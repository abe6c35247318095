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
	"github.com/cloudwego/zpeep/internal/opts"
	"github.com/cloudwego/zpeep/internal/peephole"
	"github.com/cloudwego/zpeep/isa"
)

// Result is the outcome of a single optimization pass.
type Result = peephole.Result

// Stats counts the committed transformations of each rule.
type Stats = peephole.Stats

// Optimize runs one peephole pass over s, rewriting it in place. The stream
// must be in its final, register allocated form.
func Optimize(s *isa.Stream, options ...Option) Result {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	return peephole.Optimize(s, &o)
}

// OptimizeN runs up to n passes, stopping early once a pass changes nothing.
// The modified registers and statistics of every pass are merged.
func OptimizeN(s *isa.Stream, n int, options ...Option) Result {
	var ret Result
	o := opts.GetDefaultOptions()

	/* apply the options once, stateful permits span all passes */
	for _, fn := range options {
		fn(&o)
	}

	/* run the passes */
	for i := 0; i < n; i++ {
		r := peephole.Optimize(s, &o)
		ret.Modified = ret.Modified.Union(r.Modified)

		/* merge the statistics */
		for k, v := range r.Stats {
			ret.Stats[k] += v
		}

		/* reached a fixed point */
		if r.Stats.Total() == 0 {
			break
		}
	}
	return ret
}
