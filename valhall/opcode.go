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
)

type OpCode uint8

const (
    OP_nop OpCode = iota        // no operation
    OP_mov_i32                  // Rs0 -> Rd
    OP_fadd_f32                 // Rs0 + Rs1 -> Rd
    OP_fadd_v2f16               // Rs0 + Rs1 -> Rd, per 16-bit lane
    OP_fma_f32                  // Rs0 * Rs1 + Rs2 -> Rd
    OP_fround_f32               // round(Rs0) -> Rd
    OP_fround_v2f16             // round(Rs0) -> Rd, per 16-bit lane
    OP_v2s16_to_v2f16           // f16(Rs0) -> Rd, per 16-bit lane
    OP_fadd_imm_f32             // Rs0 + Iv -> Rd
    OP_fadd_imm_v2f16           // Rs0 + Iv -> Rd, per 16-bit lane
    OP_icmp_v2s16               // cmp(Rs0, Rs1) | Rs2 -> Rd
    OP_fcmp_v2f16               // cmp(Rs0, Rs1) | Rs2 -> Rd
    OP_mux_i32                  // mux(Rs0, Rs1, Rs2) -> Rd
    OP_lshift_and_i32           // (Rs0 << Rs2) & ~Rs1 -> Rd
    OP_load_i32                 // *(Rs0 + Iv) -> Rd
    OP_store_i32                // Sr -> *(Rs0 + Iv)
    OP_tex                      // sample(Rs0, Sr) -> Rd
    OP_branchz_i16              // if (Rs0 cmp 0) PC + Br -> PC
    _OP_count
)

// Class selects the field layout of an instruction word.
type Class uint8

const (
    ClassNop Class = iota
    ClassALU
    ClassImmediate
    ClassLoad
    ClassStore
    ClassTexture
    ClassBranch
)

// Lanes is how a source selects its 16-bit halves.
type Lanes uint8

const (
    LanesNone Lanes = iota
    LanesSwizzle
    LanesWiden
)

// SrcInfo describes the modifiers a source slot can encode.
type SrcInfo struct {
    Absneg  bool
    Notted  bool
    Lanes   Lanes
    LaneAt  uint8
    RegOnly bool
}

// OpInfo is the static descriptor of an opcode.
type OpInfo struct {
    Name       string
    Class      Class
    Exact      uint64
    Secondary  uint8
    HasDest    bool
    Srcs       []SrcInfo
    Clamp      bool
    Round      bool
    Cmpf       bool
    ResultType bool
    Mux        bool
}

func (self *OpInfo) NumSrcs() int {
    return len(self.Srcs)
}

// swizzle field of source i in the generic ALU layout
func swz(i uint8) uint8 {
    return 24 + (2 - i) * 2
}

var (
    _SrcPlain  = SrcInfo{}
    _SrcReg    = SrcInfo { RegOnly: true }
    _SrcNeg0   = SrcInfo { Absneg: true, Lanes: LanesWiden, LaneAt: swz(0) }
    _SrcNeg1   = SrcInfo { Absneg: true, Lanes: LanesWiden, LaneAt: swz(1) }
    _SrcNeg2   = SrcInfo { Absneg: true, Lanes: LanesWiden, LaneAt: swz(2) }
    _SrcSwz0   = SrcInfo { Absneg: true, Lanes: LanesSwizzle, LaneAt: swz(0) }
    _SrcSwz1   = SrcInfo { Absneg: true, Lanes: LanesSwizzle, LaneAt: swz(1) }
)

var OpInfos = [_OP_count]OpInfo {
    OP_nop: {
        Name  : "nop",
        Class : ClassNop,
    },
    OP_mov_i32: {
        Name    : "mov.i32",
        Class   : ClassALU,
        Exact   : 0x91,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcPlain },
    },
    OP_fadd_f32: {
        Name    : "fadd.f32",
        Class   : ClassALU,
        Exact   : 0xa4,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcNeg0, _SrcNeg1 },
        Clamp   : true,
        Round   : true,
    },
    OP_fadd_v2f16: {
        Name    : "fadd.v2f16",
        Class   : ClassALU,
        Exact   : 0xa5,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcSwz0, _SrcSwz1 },
        Clamp   : true,
        Round   : true,
    },
    OP_fma_f32: {
        Name    : "fma.f32",
        Class   : ClassALU,
        Exact   : 0xb2,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcNeg0, _SrcNeg1, _SrcNeg2 },
        Clamp   : true,
        Round   : true,
    },
    OP_fround_f32: {
        Name      : "fround.f32",
        Class     : ClassALU,
        Exact     : 0x90,
        Secondary : 0x0d,
        HasDest   : true,
        Srcs      : []SrcInfo { _SrcNeg0 },
        Clamp     : true,
        Round     : true,
    },
    OP_fround_v2f16: {
        Name      : "fround.v2f16",
        Class     : ClassALU,
        Exact     : 0x90,
        Secondary : 0x0f,
        HasDest   : true,
        Srcs      : []SrcInfo { _SrcSwz0 },
        Clamp     : true,
        Round     : true,
    },
    OP_v2s16_to_v2f16: {
        Name      : "v2s16_to_v2f16",
        Class     : ClassALU,
        Exact     : 0x90,
        Secondary : 0x07,
        HasDest   : true,
        Srcs      : []SrcInfo {{ Lanes: LanesSwizzle, LaneAt: 36 }},
        Round     : true,
    },
    OP_fadd_imm_f32: {
        Name    : "fadd_imm.f32",
        Class   : ClassImmediate,
        Exact   : 0x114,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcPlain },
    },
    OP_fadd_imm_v2f16: {
        Name    : "fadd_imm.v2f16",
        Class   : ClassImmediate,
        Exact   : 0x115,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcPlain },
    },
    OP_icmp_v2s16: {
        Name       : "icmp.v2s16",
        Class      : ClassALU,
        Exact      : 0xf9,
        HasDest    : true,
        Cmpf       : true,
        ResultType : true,
        Srcs       : []SrcInfo {
            { Lanes: LanesSwizzle, LaneAt: 36 },
            { Lanes: LanesSwizzle, LaneAt: swz(1) },
            _SrcPlain,
        },
    },
    OP_fcmp_v2f16: {
        Name       : "fcmp.v2f16",
        Class      : ClassALU,
        Exact      : 0xf5,
        HasDest    : true,
        Cmpf       : true,
        ResultType : true,
        Srcs       : []SrcInfo {
            { Absneg: true, Lanes: LanesSwizzle, LaneAt: swz(0) },
            { Absneg: true, Lanes: LanesSwizzle, LaneAt: swz(1) },
            _SrcPlain,
        },
    },
    OP_mux_i32: {
        Name    : "mux.i32",
        Class   : ClassALU,
        Exact   : 0xb8,
        HasDest : true,
        Mux     : true,
        Srcs    : []SrcInfo { _SrcPlain, _SrcPlain, _SrcPlain },
    },
    OP_lshift_and_i32: {
        Name    : "lshift_and.i32",
        Class   : ClassALU,
        Exact   : 0x3e,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcPlain, { Notted: true }, _SrcPlain },
    },
    OP_load_i32: {
        Name    : "load.i32",
        Class   : ClassLoad,
        Exact   : 0x60,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcReg },
    },
    OP_store_i32: {
        Name  : "store.i32",
        Class : ClassStore,
        Exact : 0x78,
        Srcs  : []SrcInfo { _SrcReg },
    },
    OP_tex: {
        Name    : "tex",
        Class   : ClassTexture,
        Exact   : 0x128,
        HasDest : true,
        Srcs    : []SrcInfo { _SrcPlain },
    },
    OP_branchz_i16: {
        Name  : "branchz.i16",
        Class : ClassBranch,
        Exact : 0x1f,
        Cmpf  : true,
        Srcs  : []SrcInfo {{ Lanes: LanesWiden, LaneAt: 37 }},
    },
}

func (self OpCode) Info() *OpInfo {
    if self >= _OP_count {
        panic(fmt.Sprintf("valhall: invalid opcode %d", self))
    } else {
        return &OpInfos[self]
    }
}

func (self OpCode) String() string {
    if self < _OP_count {
        return OpInfos[self].Name
    } else {
        return fmt.Sprintf("OpCode(%d)", self)
    }
}
