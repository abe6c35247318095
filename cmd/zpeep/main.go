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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/zpeep"
	"github.com/cloudwego/zpeep/internal/asm"
	"github.com/cloudwego/zpeep/isa"
)

type config struct {
	arch      string
	zos       bool
	trace     bool
	disable   []string
	zeroXOR   bool
	bisect    int
	randomize bool
	stats     bool
	dump      bool
	passes    int
	pool      string
}

func (self *config) options(stderr io.Writer) ([]zpeep.Option, error) {
	arch, err := isa.ParseArch(self.arch)
	if err != nil {
		return nil, err
	}

	/* target description */
	ret := []zpeep.Option{
		zpeep.WithArch(arch),
		zpeep.WithZOS(self.zos),
		zpeep.WithRandomize(self.randomize),
	}

	/* disabled rules */
	for _, name := range self.disable {
		if r, err := zpeep.ParseRule(name); err != nil {
			return nil, err
		} else {
			ret = append(ret, zpeep.DisableRules(r))
		}
	}

	/* rules that are off by default */
	if self.zeroXOR {
		ret = append(ret, zpeep.EnableRules(zpeep.ZeroLoadToXOR))
	}

	/* literal pool register, for the catch block reload */
	if self.pool != "" {
		if r, err := isa.ParseReg(self.pool); err != nil {
			return nil, errors.Wrap(err, "literal pool")
		} else if r.Kind() != isa.K_gpr || r.Virtual() {
			return nil, errors.Newf("invalid literal pool register %q", self.pool)
		} else {
			ret = append(ret, zpeep.WithLiteralPool(r, true, false))
		}
	}

	/* trace lines go to stderr */
	if self.trace {
		h := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		ret = append(ret, zpeep.WithLogger(slog.New(h)))
	}

	/* bisect limit goes last, so it only counts what the other options permit */
	if self.bisect >= 0 {
		ret = append(ret, zpeep.WithBisect(self.bisect))
	}
	return ret, nil
}

func (self *config) run(cmd *cobra.Command, args []string) error {
	var err error
	var src *isa.Stream

	/* read the input listing */
	if len(args) == 0 || args[0] == "-" {
		src, err = asm.AssembleReader(cmd.InOrStdin())
	} else if fp, ferr := os.Open(args[0]); ferr != nil {
		return errors.Wrap(ferr, "open input")
	} else {
		src, err = asm.AssembleReader(fp)
		fp.Close()
	}

	/* check for parse errors */
	if err != nil {
		return err
	}

	/* build the option list */
	opts, err := self.options(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	/* optimize and print the result */
	ret := zpeep.OptimizeN(src, self.passes, opts...)
	out := cmd.OutOrStdout()

	/* dump with instruction indexes if requested */
	if self.dump {
		fmt.Fprint(out, src.Dump())
	} else {
		fmt.Fprint(out, src.Disassemble())
	}

	/* statistics */
	if self.stats {
		fmt.Fprintf(cmd.ErrOrStderr(), "stats: %s\n", ret.Stats)
		fmt.Fprintf(cmd.ErrOrStderr(), "modified: %s\n", ret.Modified)
	}
	return nil
}

func command() *cobra.Command {
	cfg := &config{}
	cmd := &cobra.Command{
		Use:           "zpeep [file]",
		Short:         "Peephole optimizer for register allocated z/Architecture listings",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cfg.run,
	}

	/* command line flags */
	fs := cmd.Flags()
	fs.StringVar(&cfg.arch, "arch", isa.ArchLatest.String(), "target processor generation")
	fs.BoolVar(&cfg.zos, "zos", false, "target the z/OS linkage conventions")
	fs.BoolVar(&cfg.trace, "trace", false, "log every transformation request to stderr")
	fs.StringSliceVar(&cfg.disable, "disable", nil, "disable the named rules")
	fs.BoolVar(&cfg.zeroXOR, "enable-zero-xor", false, "enable transforming loads of zero to XR")
	fs.IntVar(&cfg.bisect, "bisect", -1, "only permit the first N transformations")
	fs.BoolVar(&cfg.randomize, "randomize", false, "randomly skip transformations")
	fs.BoolVar(&cfg.stats, "stats", false, "print rule statistics to stderr")
	fs.BoolVar(&cfg.dump, "dump", false, "prefix every output line with its instruction index")
	fs.IntVar(&cfg.passes, "passes", 1, "maximum number of passes")
	fs.StringVar(&cfg.pool, "litpool", "", "literal pool base register")
	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

func main() {
	if err := command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "zpeep:", err)
		os.Exit(1)
	}
}
