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

const (
    _NopWord       = uint64(0xc0) << 40
    _BranchBits    = 27
    _FlowShift     = 59
    _PageShift     = 57
    _OpcodeShift   = 48
    _DestShift     = 40
    _SecondShift   = 16
    _ImmShift      = 8
)

func invalid(ins *Instr, format string, args ...interface{}) {
    panic(fmt.Sprintf("valhall: %s: ", ins) + fmt.Sprintf(format, args...))
}

// Pack encodes one instruction with the given flow-control action. It does
// not modify the instruction, and panics if the instruction cannot be
// expressed by the opcode descriptor.
func Pack(ins *Instr, flow Flow) uint64 {
    return pack(ins, flow, int64(ins.Branch))
}

func pack(ins *Instr, flow Flow, branch int64) uint64 {
    var ret uint64
    info := ins.Info()

    /* flow control and the FAU page are common to every class */
    if flow > FlowDiscard {
        invalid(ins, "invalid flow %#x", flow)
    }

    /* class specific layout */
    switch info.Class {
        case ClassNop       : ret = packNop(ins, info)
        case ClassALU       : ret = packAlu(ins, info)
        case ClassImmediate : ret = packImm(ins, info)
        case ClassLoad      : ret = packLoad(ins, info)
        case ClassStore     : ret = packStore(ins, info)
        case ClassTexture   : ret = packTex(ins, info)
        case ClassBranch    : ret = packBranch(ins, info, branch)
        default             : panic("unreachable")
    }

    /* add the opcode, page and flow */
    ret |= info.Exact << _OpcodeShift
    ret |= uint64(fauPage(ins, info)) << _PageShift
    ret |= uint64(flow) << _FlowShift
    return ret
}

// packSrc encodes the kind tag and index of a source operand into 8 bits.
func packSrc(ins *Instr, s Index) uint64 {
    var hi uint64

    /* the upper word only exists for 64-bit FAU slots */
    if s.Offset {
        if !s.IsFAU() {
            invalid(ins, "word select on %s", s)
        }
        hi = 1
    }

    /* kind tag in the high bits */
    switch s.Kind {
        case IndexRegister: {
            if s.Value >= MaxRegisters {
                invalid(ins, "register %s out of range", s)
            }
            if s.Discard {
                return uint64(s.Value) | 1 << 6
            } else {
                return uint64(s.Value)
            }
        }
        case IndexUniform: {
            if s.Value >= MaxUniforms {
                invalid(ins, "uniform %s out of range", s)
            }
            return 0x80 | uint64(s.Value & 0x1f) << 1 | hi
        }
        case IndexImmediate: {
            if s.Value >= MaxImmediates {
                invalid(ins, "constant %s out of range", s)
            }
            return 0xc0 | uint64(s.Value) << 1 | hi
        }
        case IndexSpecial: {
            if s.Value >= MaxSpecials {
                invalid(ins, "special %s out of range", s)
            }
            return 0xe0 | uint64(s.Value) << 1 | hi
        }
        default: {
            invalid(ins, "missing source")
            panic("unreachable")
        }
    }
}

// packDest encodes a destination register and its 16-bit write mask.
func packDest(ins *Instr, d Index) uint64 {
    var mask uint64

    /* must be a plain register */
    if d.Kind != IndexRegister || d.Value >= MaxRegisters {
        invalid(ins, "invalid destination %s", d)
    }
    if d.Neg || d.Abs || d.Not || d.Discard || d.Offset {
        invalid(ins, "modifiers on destination %s", d)
    }

    /* the swizzle selects the halves being written */
    switch d.Swizzle {
        case H01 : mask = 3
        case H00 : mask = 1
        case H11 : mask = 2
        default  : invalid(ins, "cannot write %s", d)
    }

    /* register with write mask */
    return uint64(d.Value) | mask << 6
}

var _SwizzleCodes = [...]uint64 {
    H00 : 0,
    H10 : 1,
    H01 : 2,
    H11 : 3,
}

func packLanes(ins *Instr, si *SrcInfo, s Index) uint64 {
    switch si.Lanes {
        case LanesSwizzle: {
            return _SwizzleCodes[s.Swizzle] << si.LaneAt
        }

        /* widening a half to 32 bits cannot swap them */
        case LanesWiden: {
            switch s.Swizzle {
                case H01 : return 0
                case H00 : return 1 << si.LaneAt
                case H11 : return 2 << si.LaneAt
                default  : invalid(ins, "cannot widen %s", s)
            }
        }

        /* no lane select at all */
        default: {
            if s.Swizzle != H01 {
                invalid(ins, "swizzle on %s is not supported", s)
            }
        }
    }
    return 0
}

func packMods(ins *Instr, i int, si *SrcInfo, s Index) uint64 {
    var ret uint64
    neg := 32 + 2 + (2 - uint(i)) * 2

    /* negate and absolute value */
    if s.Neg || s.Abs {
        if !si.Absneg {
            invalid(ins, "source %d cannot be negated or absoluted", i)
        }
        if s.Neg { ret |= 1 << neg }
        if s.Abs { ret |= 1 << (neg + 1) }
    }

    /* boolean inversion */
    if s.Not {
        if !si.Notted {
            invalid(ins, "source %d cannot be inverted", i)
        }
        ret |= 1 << 35
    }

    /* lane selects */
    return ret | packLanes(ins, si, s)
}

func packSources(ins *Instr, info *OpInfo) uint64 {
    var ret uint64
    for i := range ins.Src {
        s := ins.Src[i]
        if i >= len(info.Srcs) {
            if !s.IsNull() {
                invalid(ins, "too many sources")
            }
            continue
        }

        /* some slots only take registers */
        si := &info.Srcs[i]
        if si.RegOnly && s.Kind != IndexRegister {
            invalid(ins, "source %d must be a register", i)
        }

        /* operand and modifiers */
        ret |= packSrc(ins, s) << (8 * uint(i))
        ret |= packMods(ins, i, si, s)
    }
    return ret
}

func packFlags(ins *Instr, info *OpInfo) uint64 {
    var ret uint64
    if ins.Clamp != ClampNone {
        if !info.Clamp { invalid(ins, "clamp is not supported") }
        ret |= uint64(ins.Clamp) << 32
    }
    if ins.Round != RoundNone {
        if !info.Round { invalid(ins, "rounding mode is not supported") }
        ret |= uint64(ins.Round) << 30
    }
    if ins.ResultType != ResultI1 {
        if !info.ResultType { invalid(ins, "result type is not supported") }
        ret |= uint64(ins.ResultType) << 30
    }

    /* zero is a valid comparison and mux mode */
    if info.Cmpf {
        ret |= uint64(ins.Cmpf) << 32
    } else if ins.Cmpf != CmpfEQ {
        invalid(ins, "comparison is not supported")
    }
    if info.Mux {
        ret |= uint64(ins.Mux) << 32
    } else if ins.Mux != MuxNeg {
        invalid(ins, "mux is not supported")
    }
    return ret
}

// checkNoFlags rejects ALU flags on the classes that cannot encode them.
func checkNoFlags(ins *Instr, cmpf bool) {
    if ins.Clamp != ClampNone || ins.Round != RoundNone || ins.ResultType != ResultI1 || ins.Mux != MuxNeg {
        invalid(ins, "flags are not supported")
    }
    if !cmpf && ins.Cmpf != CmpfEQ {
        invalid(ins, "comparison is not supported")
    }
}

// checkUnused rejects class specific fields set on a class without them.
func checkUnused(ins *Instr, info *OpInfo) {
    if !info.HasDest && !ins.Dest.IsNull() {
        invalid(ins, "unexpected destination")
    }
    if info.Class != ClassImmediate && ins.Imm != 0 {
        invalid(ins, "unexpected inline constant")
    }
    if info.Class != ClassLoad && info.Class != ClassStore && ins.Offset != 0 {
        invalid(ins, "unexpected memory offset")
    }
    if info.Class != ClassBranch && (ins.Branch != 0 || ins.Target != nil) {
        invalid(ins, "unexpected branch target")
    }
    if info.Class != ClassTexture && (ins.Skip || ins.Count != 0 || ins.LodMode != LodZero || ins.Dimension != Dim1D) {
        invalid(ins, "unexpected texture fields")
    }
    if info.Class != ClassStore && info.Class != ClassTexture && !ins.Staging.IsNull() {
        invalid(ins, "unexpected staging register")
    }
}

func packNop(ins *Instr, info *OpInfo) uint64 {
    checkUnused(ins, info)
    checkNoFlags(ins, false)

    /* a nop has no operands at all */
    for _, s := range ins.Src {
        if !s.IsNull() {
            invalid(ins, "too many sources")
        }
    }
    return _NopWord
}

func packAlu(ins *Instr, info *OpInfo) uint64 {
    checkUnused(ins, info)
    ret := packSources(ins, info) | packFlags(ins, info)

    /* unary ops keep a secondary opcode in the unused source slot */
    if info.Secondary != 0 {
        ret |= uint64(info.Secondary) << _SecondShift
    }

    /* destination */
    return ret | packDest(ins, ins.Dest) << _DestShift
}

func packImm(ins *Instr, info *OpInfo) uint64 {
    checkUnused(ins, info)
    ret := packSrc(ins, ins.Src[0])
    ret |= packMods(ins, 0, &info.Srcs[0], ins.Src[0])

    /* the constant takes the place of the other sources */
    for _, s := range ins.Src[1:] {
        if !s.IsNull() {
            invalid(ins, "too many sources")
        }
    }

    /* the flags are not encodable either */
    checkNoFlags(ins, false)

    /* constant and destination */
    ret |= uint64(ins.Imm) << _ImmShift
    return ret | packDest(ins, ins.Dest) << _DestShift
}

// packStaging encodes a staging register window, with its read / write flag.
func packStaging(ins *Instr, r Index, write bool) uint64 {
    if r.Kind != IndexRegister || r.Value >= MaxRegisters {
        invalid(ins, "invalid staging register %s", r)
    }
    if r.Neg || r.Abs || r.Not || r.Discard || r.Offset || r.Swizzle != H01 {
        invalid(ins, "modifiers on staging register %s", r)
    }
    if write {
        return uint64(r.Value) | 1 << 7
    } else {
        return uint64(r.Value) | 1 << 6
    }
}

func packLoad(ins *Instr, info *OpInfo) uint64 {
    checkUnused(ins, info)
    ret := packSources(ins, info)

    /* loads write the staging window directly */
    checkNoFlags(ins, false)

    /* signed byte offset and the destination window */
    ret |= uint64(uint16(ins.Offset)) << 8
    return ret | packStaging(ins, ins.Dest, true) << _DestShift
}

func packStore(ins *Instr, info *OpInfo) uint64 {
    checkUnused(ins, info)
    ret := packSources(ins, info)

    /* nothing but the data and the address */
    checkNoFlags(ins, false)

    /* signed byte offset and the data window */
    ret |= uint64(uint16(ins.Offset)) << 8
    return ret | packStaging(ins, ins.Staging, false) << _DestShift
}

func packTex(ins *Instr, info *OpInfo) uint64 {
    checkUnused(ins, info)
    ret := packSources(ins, info)

    /* the staging window holds the coordinates */
    if ins.Count == 0 || ins.Count > 4 {
        invalid(ins, "invalid staging register count %d", ins.Count)
    }
    if ins.LodMode > LodGradient || ins.LodMode == 2 || ins.LodMode == 3 {
        invalid(ins, "invalid LOD mode %d", ins.LodMode)
    }
    checkNoFlags(ins, false)

    /* sampling state */
    ret |= uint64(ins.LodMode) << 13
    ret |= uint64(ins.Dimension) << 28
    ret |= uint64(ins.Count) << 33

    /* helper invocations can be skipped */
    if ins.Skip {
        ret |= 1 << 39
    }

    /* destination in the second byte, staging window in the usual place */
    ret |= packDest(ins, ins.Dest) << 16
    return ret | packStaging(ins, ins.Staging, false) << _DestShift
}

func packBranch(ins *Instr, info *OpInfo, offset int64) uint64 {
    var cond uint64
    checkUnused(ins, info)

    /* only tests against zero exist */
    switch ins.Cmpf {
        case CmpfEQ : cond = 1
        case CmpfNE : cond = 0
        default     : invalid(ins, "branch cannot test %d", ins.Cmpf)
    }

    /* the offset is a signed instruction count */
    lim := int64(1) << (_BranchBits - 1)
    if offset < -lim || offset >= lim {
        invalid(ins, "branch offset %d out of range", offset)
    }

    /* the condition source, no flags other than the test */
    checkNoFlags(ins, true)

    /* no destination, the field reads as a full write to r0 */
    ret := packSrc(ins, ins.Src[0]) | packMods(ins, 0, &info.Srcs[0], ins.Src[0])
    ret |= (uint64(offset) & (1 << _BranchBits - 1)) << 8
    ret |= cond << 36
    return ret | 0xc0 << _DestShift
}

// fauPage returns the page of the FAU sources, all of which must share it.
func fauPage(ins *Instr, info *OpInfo) uint8 {
    page := -1
    for i := range info.Srcs {
        if s := ins.Src[i]; s.IsFAU() {
            if p := int(s.Page()); page < 0 {
                page = p
            } else if page != p {
                invalid(ins, "FAU sources from pages %d and %d", page, p)
            }
        }
    }

    /* no FAU sources */
    if page < 0 {
        return 0
    } else {
        return uint8(page)
    }
}
