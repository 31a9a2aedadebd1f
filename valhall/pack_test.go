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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func r(n uint32) Index {
    return Register(n)
}

func alu(op OpCode, dest Index, srcs ...Index) *Instr {
    ins := &Instr { Op: op, Dest: dest }
    copy(ins.Src[:], srcs)
    return ins
}

func checkPack(t *testing.T, ins *Instr, expected uint64) {
    require.Equal(t, fmt.Sprintf("%#016x", expected), fmt.Sprintf("%#016x", Pack(ins, FlowNone)), ins.String())
}

func TestPack_Moves(t *testing.T) {
    checkPack(t, alu(OP_mov_i32, r(1), r(2)), 0x0091c10000000002)
    checkPack(t, alu(OP_mov_i32, r(1), Uniform(5, false)), 0x0091c1000000008a)
}

func TestPack_FaddModifiers(t *testing.T) {
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), r(2)), 0x00a4c00000000201)
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), r(2).Absolute()), 0x00a4c02000000201)
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), r(2).Negated()), 0x00a4c01000000201)

    /* both, then with a clamp */
    ins := alu(OP_fadd_f32, r(0), r(1), r(2).Absolute().Negated())
    checkPack(t, ins, 0x00a4c03000000201)
    ins.Clamp = ClampM1To1
    checkPack(t, ins, 0x00a4c03200000201)
}

func TestPack_FaddConstants(t *testing.T) {
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), Zero()), 0x00a4c0000000c001)
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), Zero().Negated()), 0x00a4c0100000c001)
}

func TestPack_Widen(t *testing.T) {
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), r(0).Half(true)), 0x00a4c00008000001)
    checkPack(t, alu(OP_fadd_f32, r(0), r(1), r(0).Half(false)), 0x00a4c00004000001)
}

func TestPack_Swizzle16(t *testing.T) {
    checkPack(t, alu(OP_fadd_v2f16, r(0), r(1).Swizzled(H00), r(0).Swizzled(H11)), 0x00a5c0000c000001)
    checkPack(t, alu(OP_fadd_v2f16, r(0), r(1), r(0)), 0x00a5c00028000001)
    checkPack(t, alu(OP_fadd_v2f16, r(0), r(1), r(0).Swizzled(H10)), 0x00a5c00024000001)
    checkPack(t, alu(OP_fadd_v2f16, r(0), r(0).Absolute().Discarded(), Zero().Negated()), 0x00a5c0902800c040)
}

func TestPack_Fma(t *testing.T) {
    ins := alu(OP_fma_f32, r(1), r(1).Discarded(), Uniform(4, false), Zero().Negated())
    checkPack(t, ins, 0x00b2c10400c08841)
}

func TestPack_Unary(t *testing.T) {
    ins := alu(OP_fround_f32, r(2), r(2).Negated().Discarded())
    ins.Round = RoundRTN
    checkPack(t, ins, 0x0090c240800d0042)

    /* half destination */
    ins = alu(OP_fround_v2f16, r(0).Half(false), r(0))
    ins.Round = RoundRTN
    checkPack(t, ins, 0x00904000a00f0000)
    ins.Src[0] = r(1).Swizzled(H10)
    checkPack(t, ins, 0x00904000900f0001)

    /* conversion */
    checkPack(t, alu(OP_v2s16_to_v2f16, r(2), r(2).Discarded()), 0x0090c22000070042)
    checkPack(t, alu(OP_v2s16_to_v2f16, r(2), r(2).Swizzled(H10).Discarded()), 0x0090c21000070042)
    checkPack(t, alu(OP_v2s16_to_v2f16, r(2), r(2).Swizzled(H11).Discarded()), 0x0090c23000070042)
}

func TestPack_InlineConstant(t *testing.T) {
    ins := alu(OP_fadd_imm_f32, r(2), r(2).Discarded())
    ins.Imm = 0x4847c6c0
    checkPack(t, ins, 0x0114c24847c6c042)
    ins = alu(OP_fadd_imm_v2f16, r(2), r(2).Discarded())
    ins.Imm = 0x70ac6784
    checkPack(t, ins, 0x0115c270ac678442)
}

func TestPack_Compare(t *testing.T) {
    ins := alu(OP_icmp_v2s16, r(2), r(3).Swizzled(H10).Discarded(), r(2).Swizzled(H10).Discarded(), Zero())
    ins.Cmpf = CmpfGT
    ins.ResultType = ResultM1
    checkPack(t, ins, 0x00f9c21184c04243)

    /* same operands on the float compare, which swizzles differently */
    ins.Op = OP_fcmp_v2f16
    ins.Src[1] = r(2).Swizzled(H00).Discarded()
    checkPack(t, ins, 0x00f5c20190c04243)
}

func TestPack_Mux(t *testing.T) {
    ins := alu(OP_mux_i32, r(0), r(0).Discarded(), r(4).Discarded(), Uniform(0, false))
    ins.Mux = MuxBit
    checkPack(t, ins, 0x00b8c00300804440)
}

func TestPack_Branch(t *testing.T) {
    ins := &Instr { Op: OP_branchz_i16, Branch: 1 }
    ins.Src[0] = r(2).Half(false)
    checkPack(t, ins, 0x001fc03000000102)

    /* unconditional, backwards */
    ins = &Instr { Op: OP_branchz_i16, Branch: -8 }
    ins.Src[0] = Zero()
    checkPack(t, ins, 0x001fc017fffff8c0)
}

func TestPack_Texture(t *testing.T) {
    ins := &Instr {
        Op        : OP_tex,
        Dest      : r(2),
        Staging   : r(2),
        Count     : 1,
        Dimension : Dim2D,
        LodMode   : LodComputed,
    }
    ins.Src[0] = r(3)
    checkPack(t, ins, 0x0128420210c22003)
    ins.Skip = true
    checkPack(t, ins, 0x0128428210c22003)

    /* explicit LOD with a constant descriptor */
    ins = &Instr {
        Op        : OP_tex,
        Dest      : r(0),
        Staging   : r(2),
        Count     : 3,
        Dimension : Dim2D,
        LodMode   : LodExplicit,
    }
    ins.Src[0] = Zero()
    checkPack(t, ins, 0x0128420610c080c0)
}

func TestPack_Memory(t *testing.T) {
    ld := &Instr { Op: OP_load_i32, Dest: r(4), Offset: 16 }
    ld.Src[0] = r(2)
    checkPack(t, ld, 0x0060840000001002)

    /* negative offsets are sign extended by the hardware */
    st := &Instr { Op: OP_store_i32, Staging: r(4), Offset: -4 }
    st.Src[0] = r(2)
    checkPack(t, st, 0x0078440000fffc02)
}

func TestPack_Not(t *testing.T) {
    ins := alu(OP_lshift_and_i32, r(0), r(1), r(2).Inverted(), Zero())
    assert.Equal(t, uint64(1) << 35, Pack(ins, FlowNone) & (1 << 35))
}

func TestPack_FAUPage(t *testing.T) {
    checkPack(t, alu(OP_mov_i32, r(1), Uniform(37, false)), 0x0291c1000000008a)
    checkPack(t, alu(OP_mov_i32, r(1), SpecialValue(SpecialLaneID, false)), 0x0691c100000000ee)
    checkPack(t, alu(OP_mov_i32, r(1), Uniform(5, true)), 0x0091c1000000008b)
}

func TestPack_Flow(t *testing.T) {
    ins := alu(OP_mov_i32, r(1), r(2))
    assert.Equal(t, uint64(0x5891c10000000002), Pack(ins, FlowEnd))
    assert.Equal(t, uint64(0x0000c00000000000), Pack(Nop(), FlowNone))
    assert.Panics(t, func() { Pack(ins, Flow(0xf)) })
}

func TestPack_DoesNotModify(t *testing.T) {
    ins := alu(OP_fadd_v2f16, r(0), r(1).Swizzled(H10).Negated(), Uniform(3, true))
    ins.Round = RoundRTZ
    saved := *ins
    a := Pack(ins, FlowWait0)
    b := Pack(ins, FlowWait0)
    assert.Equal(t, a, b)
    assert.Equal(t, saved, *ins)
}

func TestPack_Violations(t *testing.T) {
    tests := []struct {
        name string
        ins  *Instr
    } {
        { "negate without absneg" , alu(OP_mov_i32, r(1), r(2).Negated()) },
        { "swizzle without lanes" , alu(OP_mux_i32, r(1), r(2).Swizzled(H11), r(3), r(4)) },
        { "widen cannot swap"     , alu(OP_fadd_f32, r(0), r(1), r(2).Swizzled(H10)) },
        { "not without notted"    , alu(OP_fadd_f32, r(0), r(1).Inverted(), r(2)) },
        { "too many sources"      , alu(OP_fadd_f32, r(0), r(1), r(2), r(3)) },
        { "missing source"        , alu(OP_fadd_f32, r(0), r(1)) },
        { "missing destination"   , alu(OP_fadd_f32, Null(), r(1), r(2)) },
        { "FAU destination"       , alu(OP_mov_i32, Uniform(1, false), r(2)) },
        { "register out of range" , alu(OP_mov_i32, r(1), r(64)) },
        { "uniform out of range"  , alu(OP_mov_i32, r(1), Uniform(128, false)) },
        { "word select on register", alu(OP_mov_i32, r(1), Index { Kind: IndexRegister, Value: 2, Offset: true }) },
        { "mixed FAU pages"       , alu(OP_fadd_f32, r(0), Uniform(37, false), Uniform(5, false)) },
        { "clamp on integer op"   , &Instr { Op: OP_mov_i32, Dest: r(1), Src: [4]Index { r(2) }, Clamp: Clamp0To1 } },
        { "comparison on fadd"    , &Instr { Op: OP_fadd_f32, Dest: r(1), Src: [4]Index { r(2), r(3) }, Cmpf: CmpfLT } },
        { "store with destination", &Instr { Op: OP_store_i32, Dest: r(1), Staging: r(2), Src: [4]Index { r(3) } } },
        { "load from uniform"     , &Instr { Op: OP_load_i32, Dest: r(1), Src: [4]Index { Uniform(0, false) } } },
        { "texture without window", &Instr { Op: OP_tex, Dest: r(1), Staging: r(2), Src: [4]Index { r(3) } } },
        { "branch on less than"   , &Instr { Op: OP_branchz_i16, Src: [4]Index { r(2) }, Cmpf: CmpfLT } },
        { "branch out of range"   , &Instr { Op: OP_branchz_i16, Src: [4]Index { r(2) }, Branch: 1 << 26 } },
        { "inline constant on alu", &Instr { Op: OP_fadd_f32, Dest: r(1), Src: [4]Index { r(2), r(3) }, Imm: 1 } },
        { "invalid opcode"        , &Instr { Op: _OP_count } },
    }
    for _, tc := range tests {
        assert.Panics(t, func() { Pack(tc.ins, FlowNone) }, tc.name)
    }
}
