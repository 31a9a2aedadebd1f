/*
 * Copyright 2021 ByteDance Inc.
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
    `github.com/cloudwego/nirgo/internal/utils`
    `github.com/cloudwego/nirgo/nir`
)

// ValidationError occures when a shader breaks the structural or SSA rules
// of the IR. It lists every problem found in the offending function.
type ValidationError = nir.ValidationError

// FormatError occures when failed to decode a compiled shader binary.
type FormatError = utils.FormatError

// CompileError occures when compiling a shader aborted on an internal error
// inside a worker of CompileAll.
type CompileError = utils.CompileError
