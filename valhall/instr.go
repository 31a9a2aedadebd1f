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

package valhall

import (
    `fmt`
    `strings`
)

// Flow is the flow-control action attached to an instruction word.
type Flow uint8

const (
    FlowNone       Flow = 0x0
    FlowWait0      Flow = 0x1
    FlowWait1      Flow = 0x2
    FlowWait01     Flow = 0x3
    FlowWait2      Flow = 0x4
    FlowWait02     Flow = 0x5
    FlowWait12     Flow = 0x6
    FlowWait012    Flow = 0x7
    FlowWait0126   Flow = 0x8
    FlowWait       Flow = 0x9
    FlowBlend      Flow = 0xa
    FlowEnd        Flow = 0xb
    FlowReconverge Flow = 0xc
    FlowDiscard    Flow = 0xd
)

type Clamp uint8

const (
    ClampNone Clamp = iota
    Clamp0Inf
    ClampM1To1
    Clamp0To1
)

type Round uint8

const (
    RoundNone Round = iota
    RoundRTP
    RoundRTN
    RoundRTZ
)

// Cmpf is the comparison of compare and branch instructions.
type Cmpf uint8

const (
    CmpfEQ Cmpf = iota
    CmpfGT
    CmpfGE
    CmpfNE
    CmpfLT
    CmpfLE
)

type ResultType uint8

const (
    ResultI1 ResultType = iota
    ResultF1
    ResultM1
)

type Mux uint8

const (
    MuxNeg Mux = iota
    MuxIntZero
    MuxFPZero
    MuxBit
)

type Dimension uint8

const (
    Dim1D Dimension = iota
    Dim2D
    Dim3D
    DimCube
)

type LodMode uint8

const (
    LodZero     LodMode = 0
    LodComputed LodMode = 1
    LodExplicit LodMode = 4
    LodBias     LodMode = 5
    LodGradient LodMode = 6
)

// Instr is a scheduled and register-allocated backend instruction.
//
// Staging is the register window of memory and texture instructions.
// Offset is the byte offset of loads and stores, Branch the instruction
// offset of a branch, Imm the inline constant of the *_IMM forms. A branch
// with a Target gets its offset computed when the program is emitted.
type Instr struct {
    Op         OpCode
    Dest       Index
    Src        [4]Index
    Staging    Index
    Count      uint8
    Imm        uint32
    Offset     int16
    Branch     int32
    Target     *Block
    Flow       Flow
    Clamp      Clamp
    Round      Round
    Cmpf       Cmpf
    ResultType ResultType
    Mux        Mux
    Dimension  Dimension
    LodMode    LodMode
    Skip       bool
}

func (self *Instr) Info() *OpInfo {
    return self.Op.Info()
}

func (self *Instr) String() string {
    info := self.Info()
    args := make([]string, 0, 4)

    /* destination and staging registers */
    if info.HasDest {
        args = append(args, self.Dest.String())
    }
    if !self.Staging.IsNull() {
        args = append(args, "@" + self.Staging.String())
    }

    /* sources */
    for i := range info.Srcs {
        args = append(args, self.Src[i].String())
    }

    /* class specific operands */
    switch info.Class {
        case ClassImmediate          : args = append(args, fmt.Sprintf("%#x", self.Imm))
        case ClassLoad, ClassStore   : args = append(args, fmt.Sprintf("%+d", self.Offset))
        case ClassBranch             : args = append(args, self.branchTarget())
    }

    /* no operands */
    if len(args) == 0 {
        return info.Name
    } else {
        return info.Name + " " + strings.Join(args, ", ")
    }
}

func (self *Instr) branchTarget() string {
    if self.Target != nil {
        return self.Target.String()
    } else {
        return fmt.Sprintf("%+d", self.Branch)
    }
}

// Nop returns an instruction that does nothing.
func Nop() *Instr {
    return &Instr { Op: OP_nop }
}
