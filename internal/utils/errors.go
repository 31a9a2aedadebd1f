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

package utils

import (
    `fmt`
)

// FormatError occurs when a compiled shader envelope cannot be decoded.
type FormatError struct {
    Pos    int
    Reason string
}

func (self *FormatError) Error() string {
    return fmt.Sprintf("Format error at position %d: %s", self.Pos, self.Reason)
}

// CompileError occurs when compiling a shader aborted on an internal error.
type CompileError struct {
    Shader string
    Cause  interface{}
}

func (self *CompileError) Error() string {
    return fmt.Sprintf("CompileError(%s): %v", self.Shader, self.Cause)
}

func EFormat(pos int, reason string) *FormatError {
    return &FormatError {
        Pos    : pos,
        Reason : reason,
    }
}

func EFieldType(pos int, id int16, want string, got string) *FormatError {
    return EFormat(pos, fmt.Sprintf("field %d should be %s, got %s", id, want, got))
}

func EMissing(pos int, name string) *FormatError {
    return EFormat(pos, fmt.Sprintf("required field %q is missing", name))
}

func ECompile(shader string, cause interface{}) *CompileError {
    return &CompileError {
        Shader : shader,
        Cause  : cause,
    }
}
