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

package nir

type AluOp uint16

const (
    OpMov AluOp = iota
    OpVec2
    OpVec3
    OpVec4
    OpVec8
    OpVec16
    OpFAdd
    OpFMul
    OpFFma
    OpFNeg
    OpFAbs
    OpFSat
    OpFMin
    OpFMax
    OpFRound
    OpIAdd
    OpIMul
    OpINeg
    OpIAnd
    OpIOr
    OpIXor
    OpINot
    OpIShl
    OpFLt
    OpFGe
    OpFEq
    OpILt
    OpIEq
    OpBCSel
    OpF2I
    OpI2F
    OpFDot2
    OpFDot3
    OpFDot4
    aluOpCount
)

// AluOpInfo describes an ALU opcode. An input or output size of 0 means the
// operand is per-component and takes the width of the destination.
type AluOpInfo struct {
    Name    string
    Inputs  []uint8
    Output  uint8
}

func (self AluOpInfo) NumInputs() int {
    return len(self.Inputs)
}

var AluOpInfos = [aluOpCount]AluOpInfo {
    OpMov   : { Name: "mov"   , Inputs: []uint8 { 0 } },
    OpVec2  : { Name: "vec2"  , Inputs: []uint8 { 1, 1 }, Output: 2 },
    OpVec3  : { Name: "vec3"  , Inputs: []uint8 { 1, 1, 1 }, Output: 3 },
    OpVec4  : { Name: "vec4"  , Inputs: []uint8 { 1, 1, 1, 1 }, Output: 4 },
    OpVec8  : { Name: "vec8"  , Inputs: []uint8 { 1, 1, 1, 1, 1, 1, 1, 1 }, Output: 8 },
    OpVec16 : { Name: "vec16" , Inputs: []uint8 { 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1 }, Output: 16 },
    OpFAdd  : { Name: "fadd"  , Inputs: []uint8 { 0, 0 } },
    OpFMul  : { Name: "fmul"  , Inputs: []uint8 { 0, 0 } },
    OpFFma  : { Name: "ffma"  , Inputs: []uint8 { 0, 0, 0 } },
    OpFNeg  : { Name: "fneg"  , Inputs: []uint8 { 0 } },
    OpFAbs  : { Name: "fabs"  , Inputs: []uint8 { 0 } },
    OpFSat  : { Name: "fsat"  , Inputs: []uint8 { 0 } },
    OpFMin  : { Name: "fmin"  , Inputs: []uint8 { 0, 0 } },
    OpFMax  : { Name: "fmax"  , Inputs: []uint8 { 0, 0 } },
    OpFRound: { Name: "fround", Inputs: []uint8 { 0 } },
    OpIAdd  : { Name: "iadd"  , Inputs: []uint8 { 0, 0 } },
    OpIMul  : { Name: "imul"  , Inputs: []uint8 { 0, 0 } },
    OpINeg  : { Name: "ineg"  , Inputs: []uint8 { 0 } },
    OpIAnd  : { Name: "iand"  , Inputs: []uint8 { 0, 0 } },
    OpIOr   : { Name: "ior"   , Inputs: []uint8 { 0, 0 } },
    OpIXor  : { Name: "ixor"  , Inputs: []uint8 { 0, 0 } },
    OpINot  : { Name: "inot"  , Inputs: []uint8 { 0 } },
    OpIShl  : { Name: "ishl"  , Inputs: []uint8 { 0, 0 } },
    OpFLt   : { Name: "flt"   , Inputs: []uint8 { 0, 0 } },
    OpFGe   : { Name: "fge"   , Inputs: []uint8 { 0, 0 } },
    OpFEq   : { Name: "feq"   , Inputs: []uint8 { 0, 0 } },
    OpILt   : { Name: "ilt"   , Inputs: []uint8 { 0, 0 } },
    OpIEq   : { Name: "ieq"   , Inputs: []uint8 { 0, 0 } },
    OpBCSel : { Name: "bcsel" , Inputs: []uint8 { 0, 0, 0 } },
    OpF2I   : { Name: "f2i"   , Inputs: []uint8 { 0 } },
    OpI2F   : { Name: "i2f"   , Inputs: []uint8 { 0 } },
    OpFDot2 : { Name: "fdot2" , Inputs: []uint8 { 2, 2 }, Output: 1 },
    OpFDot3 : { Name: "fdot3" , Inputs: []uint8 { 3, 3 }, Output: 1 },
    OpFDot4 : { Name: "fdot4" , Inputs: []uint8 { 4, 4 }, Output: 1 },
}

func (self AluOp) String() string {
    if self >= aluOpCount {
        panic("nir: invalid ALU opcode")
    } else {
        return AluOpInfos[self].Name
    }
}

// IsVec reports whether the opcode gathers one lane from each source.
func (self AluOp) IsVec() bool {
    switch self {
        case OpVec2, OpVec3, OpVec4, OpVec8, OpVec16 : return true
        default                                      : return false
    }
}

// VecOp returns the vecN opcode with n sources.
func VecOp(n int) AluOp {
    switch n {
        case 2  : return OpVec2
        case 3  : return OpVec3
        case 4  : return OpVec4
        case 8  : return OpVec8
        case 16 : return OpVec16
        default : panic("nir: no vec opcode with that many sources")
    }
}
