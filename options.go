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

package nirgo

import (
	"fmt"

	"github.com/cloudwego/nirgo/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithMaxIterations limits how many rounds of the optimization passes run.
//
// Each round runs every pass once. Without a limit, the passes are repeated
// until none of them makes progress.
//
// Set this option to "0" disables this limit.
//
// The default value of this option is "0".
func WithMaxIterations(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("nirgo: invalid iteration count: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxIterations = n }
	}
}

// WithValidation controls whether the IR is validated before and after
// optimizing it.
//
// The default value of this option is "true".
func WithValidation(v bool) Option {
	return func(o *opts.Options) { o.Validate = v }
}

// WithWorkers sets how many shaders CompileAll compiles concurrently.
//
// The default value of this option is the number of logical CPU cores.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("nirgo: invalid worker count: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxWorkers = n }
	}
}

// SetMaxIterations sets the default optimization round limit for all
// compilations from now on.
//
// This value can also be configured with the `NIRGO_MAX_OPT_ITERATIONS`
// environment variable.
//
// Returns the old opts.MaxIterations value.
func SetMaxIterations(n int) int {
	n, opts.MaxIterations = opts.MaxIterations, n
	return n
}

// SetMaxWorkers sets the default worker count of CompileAll.
//
// This value can also be configured with the `NIRGO_MAX_WORKERS`
// environment variable.
//
// Returns the old opts.MaxWorkers value.
func SetMaxWorkers(n int) int {
	n, opts.MaxWorkers = opts.MaxWorkers, n
	return n
}

func buildOptions(options []Option) opts.Options {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	return o
}
