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

// Package nirgo drives shader compilation: it optimizes SSA shaders with
// the copy propagation and dead code elimination passes, hands them to a
// backend, and assembles the resulting Valhall programs into binaries.
package nirgo

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/cloudwego/nirgo/internal/binfmt"
	"github.com/cloudwego/nirgo/internal/opts"
	"github.com/cloudwego/nirgo/internal/utils"
	"github.com/cloudwego/nirgo/nir"
	"github.com/cloudwego/nirgo/valhall"
)

// Backend lowers an optimized shader into a scheduled, register-allocated
// Valhall program.
type Backend func(ctx context.Context, s *nir.Shader) (*valhall.Program, error)

// Binary is a compiled shader.
type Binary struct {
	Name         string
	Stage        nir.Stage
	Code         []byte
	Instructions int
	Optimized    bool
}

// Job is one shader for CompileAll.
type Job struct {
	Shader  *nir.Shader
	Backend Backend
}

// Optimize runs copy propagation and dead code elimination over every
// function of s until they stop making progress, and reports whether
// anything changed.
func Optimize(s *nir.Shader, options ...Option) bool {
	o := buildOptions(options)
	return nir.Optimize(s, o.MaxIterations, nil)
}

// Validate checks the structural and SSA rules of s. The returned error is
// a *ValidationError if s is malformed.
func Validate(s *nir.Shader) error {
	return nir.ValidateShader(s)
}

// Assemble packs p into its binary form.
func Assemble(p *valhall.Program) []byte {
	return p.Emit()
}

// Compile optimizes s, lowers it with backend and assembles the result.
func Compile(ctx context.Context, s *nir.Shader, backend Backend, options ...Option) (*Binary, error) {
	o := buildOptions(options)
	return compile(ctx, s, backend, &o)
}

func compile(ctx context.Context, s *nir.Shader, backend Backend, o *opts.Options) (_ *Binary, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "nirgo: compile shader", "name", s.Name, "stage", s.Stage)
	defer tr.Finish("err", &err)

	/* check the input */
	if o.Validate {
		if err = nir.ValidateShader(s); err != nil {
			return nil, errors.Wrap(err, "input shader %v", s.Name)
		}
	}

	/* run the passes */
	changed := nir.Optimize(s, o.MaxIterations, func(round int, pass string, progress bool) {
		if tr.If("passes") {
			tr.Printw("pass", "round", round, "pass", pass, "progress", progress)
		}
	})

	/* the passes must keep the shader well-formed */
	if o.Validate {
		if err = nir.ValidateShader(s); err != nil {
			return nil, errors.Wrap(err, "optimized shader %v", s.Name)
		}
	}

	/* dump the optimized IR if asked to */
	if tr.If("dump_nir") {
		tr.Printw("optimized", "changed", changed, "nir", s.String())
	}

	/* lower to the machine */
	p, err := backend(ctx, s)
	if err != nil {
		return nil, errors.Wrap(err, "backend")
	} else if p == nil {
		return nil, errors.New("backend returned no program")
	}

	/* dump the program if asked to */
	if tr.If("dump_program") {
		tr.Printw("program", "words", p.Len(), "code", p.String())
	}

	/* assemble the final binary */
	return &Binary{
		Name:         s.Name,
		Stage:        s.Stage,
		Code:         p.Emit(),
		Instructions: p.Len(),
		Optimized:    changed,
	}, nil
}

// CompileAll compiles independent shaders concurrently. The result has the
// same order as jobs. Each shader is touched by exactly one worker, shaders
// must not share any IR.
//
// The first error aborts nothing already running, but it is the one
// returned. A panic in a job is reported as a *CompileError.
func CompileAll(ctx context.Context, jobs []Job, options ...Option) ([]*Binary, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var err error

	/* nothing to do */
	if len(jobs) == 0 {
		return nil, nil
	}

	/* one pool per batch, bounded by the worker count */
	o := buildOptions(options)
	ret := make([]*Binary, len(jobs))
	pool := gopool.NewPool("nirgo", int32(o.Workers(len(jobs))), gopool.NewConfig())

	/* keep the first error */
	fail := func(e error) {
		mu.Lock()
		if err == nil {
			err = e
		}
		mu.Unlock()
	}

	/* run every job */
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)

		/* each worker owns its shader */
		pool.CtxGo(ctx, func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					fail(utils.ECompile(shaderName(job.Shader), v))
				}
			}()

			/* compile the shader */
			if ctx.Err() != nil {
				fail(ctx.Err())
			} else if bin, e := compile(ctx, job.Shader, job.Backend, &o); e != nil {
				fail(e)
			} else {
				ret[i] = bin
			}
		})
	}

	/* wait for all workers */
	wg.Wait()
	if err != nil {
		return nil, err
	} else {
		return ret, nil
	}
}

func shaderName(s *nir.Shader) string {
	if s == nil {
		return "<nil>"
	} else {
		return s.Name
	}
}

// MarshalBinary encodes b into the Thrift envelope.
func MarshalBinary(b *Binary) []byte {
	return binfmt.Encode(&binfmt.ShaderBinary{
		Name:         b.Name,
		Stage:        int32(b.Stage),
		Code:         b.Code,
		Instructions: int32(b.Instructions),
		Words:        int32(len(b.Code) / valhall.WordSize),
		Optimized:    b.Optimized,
	})
}

// UnmarshalBinary decodes a binary produced by MarshalBinary. A malformed
// buffer results in a wrapped *FormatError.
func UnmarshalBinary(buf []byte) (*Binary, error) {
	v, err := binfmt.Decode(buf)
	if err != nil {
		return nil, err
	}

	/* the code must be made of whole words */
	if len(v.Code)%valhall.WordSize != 0 {
		return nil, utils.EFormat(0, fmt.Sprintf("code size %d is not a multiple of the word size", len(v.Code)))
	} else if n := len(v.Code) / valhall.WordSize; int(v.Words) != n {
		return nil, utils.EFormat(0, fmt.Sprintf("code has %d words, header says %d", n, v.Words))
	}

	/* convert to the public type */
	return &Binary{
		Name:         v.Name,
		Stage:        nir.Stage(v.Stage),
		Code:         v.Code,
		Instructions: int(v.Instructions),
		Optimized:    v.Optimized,
	}, nil
}
