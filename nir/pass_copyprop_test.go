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

import (
    `sync/atomic`
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func runCopyProp(t *testing.T, impl *Impl) bool {
    s := NewShader("test", StageFragment, impl)
    ret := CopyProp{}.Apply(s)
    require.NoError(t, Validate(impl), impl.String())
    return ret
}

func swizzleOf(s *Src, n int) []uint8 {
    return append([]uint8(nil), s.Swizzle[:n]...)
}

func TestCopyProp_MovIntoAlu(t *testing.T) {
    b := NewBuilder("main")
    v := b.Load(IntrinsicLoadInput, 4, b.LoadConst(0))
    m := b.Mov(v, 3, 2, 1, 0)
    p := b.BuildAlu(OpFAdd, 2, m, m)
    p.Src[1].Swizzle[0] = 2
    p.Src[1].Swizzle[1] = 3
    b.Store(IntrinsicStoreOutput, p.Dest)
    impl := b.Finish()
    folded := atomic.LoadUint64(&CopiesFolded)
    removed := atomic.LoadUint64(&CopiesRemoved)

    /* both sources compose with the mov swizzle */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, folded + 2, atomic.LoadUint64(&CopiesFolded))
    assert.Equal(t, removed + 1, atomic.LoadUint64(&CopiesRemoved))
    assert.Equal(t, v, p.Src[0].Value)
    assert.Equal(t, v, p.Src[1].Value)
    assert.Equal(t, []uint8 { 3, 2 }, swizzleOf(p.Src[0], 2))
    assert.Equal(t, []uint8 { 1, 0 }, swizzleOf(p.Src[1], 2))

    /* the mov is gone */
    assert.Nil(t, m.Def.Block())
    assert.Len(t, impl.Blocks()[0].Instrs, 4)
}

func TestCopyProp_VecPartialFold(t *testing.T) {
    b := NewBuilder("main")
    x := b.Load(IntrinsicLoadInput, 2, b.LoadConst(0))
    y := b.Load(IntrinsicLoadInput, 2, b.LoadConst(1))
    vec := b.Vec(Chan(x, 0), Chan(x, 1), Chan(y, 0), Chan(y, 1))

    /* reads lanes 0 and 1, both from x */
    lo := b.BuildAlu(OpFMul, 2, vec, vec)

    /* reads lanes 0 and 2, from x and y */
    mixed := b.BuildAlu(OpFMul, 2, vec, vec)
    mixed.Src[0].Swizzle[1] = 2
    mixed.Src[1].Swizzle[1] = 2
    b.Store(IntrinsicStoreOutput, lo.Dest)
    b.Store(IntrinsicStoreOutput, mixed.Dest)
    impl := b.Finish()

    /* the first use folds to x with an identity swizzle */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, x, lo.Src[0].Value)
    assert.Equal(t, x, lo.Src[1].Value)
    assert.Equal(t, []uint8 { 0, 1 }, swizzleOf(lo.Src[0], 2))

    /* the sibling stays on the vec, which therefore survives */
    assert.Equal(t, vec, mixed.Src[0].Value)
    assert.Equal(t, []uint8 { 0, 2 }, swizzleOf(mixed.Src[0], 2))
    assert.NotNil(t, vec.Def.Block())
    assert.Equal(t, 2, vec.NumUses())
}

func TestCopyProp_VecLaneRemap(t *testing.T) {
    b := NewBuilder("main")
    x := b.Load(IntrinsicLoadInput, 4, b.LoadConst(0))
    vec := b.Vec(Chan(x, 3), Chan(x, 1))
    p := b.BuildAlu(OpFNeg, 2, vec)
    p.Src[0].Swizzle[0] = 1
    p.Src[0].Swizzle[1] = 0
    b.Store(IntrinsicStoreOutput, p.Dest)
    impl := b.Finish()

    /* every lane comes from x, the swizzle goes through the vec */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, x, p.Src[0].Value)
    assert.Equal(t, []uint8 { 1, 3 }, swizzleOf(p.Src[0], 2))
    assert.Nil(t, vec.Def.Block())
}

func TestCopyProp_ModifiersAreNotCopies(t *testing.T) {
    b := NewBuilder("main")
    v := b.Load(IntrinsicLoadInput, 1, b.LoadConst(0))
    neg := b.BuildAlu(OpMov, 1, v)
    neg.Src[0].Negate = true
    sat := b.BuildAlu(OpMov, 1, v)
    sat.Saturate = true
    vec := b.BuildAlu(OpVec2, 2, v, v)
    vec.Src[1].Abs = true
    b.Store(IntrinsicStoreOutput, b.Alu(OpFAdd, neg.Dest, sat.Dest))
    b.Store(IntrinsicStoreOutput, b.Alu(OpFAdd, vec.Dest, vec.Dest))
    impl := b.Finish()
    impl.Require(MetadataAll)

    /* nothing to do, everything is preserved */
    require.False(t, runCopyProp(t, impl))
    assert.Equal(t, 1, neg.Dest.NumUses())
    assert.Equal(t, 1, sat.Dest.NumUses())
    assert.Equal(t, 2, vec.Dest.NumUses())
}

func TestCopyProp_NonAluUses(t *testing.T) {
    b := NewBuilder("main")
    v := b.Load(IntrinsicLoadInput, 4, b.LoadConst(0))
    plain := b.Mov(v)
    swz := b.Mov(v, 1, 0, 2, 3)
    b.Store(IntrinsicStoreOutput, plain)
    st := b.Store(IntrinsicStoreOutput, swz)
    impl := b.Finish()

    /* only the swizzleless move reaches the store */
    require.True(t, runCopyProp(t, impl))
    assert.Nil(t, plain.Def.Block())
    assert.NotNil(t, swz.Def.Block())
    assert.Equal(t, swz, st.Src[0].Value)
}

func TestCopyProp_WideningIsNotSwizzleless(t *testing.T) {
    b := NewBuilder("main")
    v := b.Load(IntrinsicLoadInput, 2, b.LoadConst(0))
    wide := b.Mov(v, 0, 1, 1)
    st := b.Store(IntrinsicStoreOutput, wide)
    impl := b.Finish()
    require.False(t, runCopyProp(t, impl))
    assert.Equal(t, wide, st.Src[0].Value)
}

func TestCopyProp_IfCondition(t *testing.T) {
    b := NewBuilder("main")
    c := b.Load(IntrinsicLoadInput, 1, b.LoadConst(0))
    m := b.Mov(c)
    br := b.PushIf(m)
    b.Store(IntrinsicStoreOutput, c)
    b.PopIf()
    impl := b.Finish()

    /* the condition is forwarded like any other non-ALU use */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, c, br.Condition.Value)
    assert.Equal(t, 1, c.NumIfUses())
    assert.True(t, m.Unused())
    assert.Nil(t, m.Def.Block())
}

func TestCopyProp_PhiSource(t *testing.T) {
    impl, phi, next := buildCountedLoop(true)
    latch := next.Def.Block()

    /* route the back edge through a plain move */
    mov := &AluInstr { Op: OpMov }
    mov.Dest = impl.NewValue(1)
    mov.Dest.Def = mov
    mov.Src = []*Src { newSrc(mov, next) }
    latch.append(mov)
    phi.SrcFor(latch).Rewrite(mov.Dest)
    require.NoError(t, Validate(impl))

    /* the φ reads the add directly again */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, next, phi.SrcFor(latch).Value)
    assert.Nil(t, mov.Block())
    assert.Equal(t, 1, next.NumUses())
}

func TestCopyProp_Metadata(t *testing.T) {
    b := NewBuilder("main")
    v := b.Load(IntrinsicLoadInput, 1, b.LoadConst(0))
    b.Store(IntrinsicStoreOutput, b.Mov(v))
    impl := b.Finish()
    impl.Require(MetadataAll)
    require.True(t, CopyProp{}.Apply(NewShader("test", StageVertex, impl)))
    assert.Equal(t, MetadataBlockIndex | MetadataDominance, impl.Valid())
    impl.Require(MetadataAll)
    require.False(t, CopyProp{}.Apply(NewShader("test", StageVertex, impl)))
    assert.Equal(t, MetadataAll, impl.Valid())
}

func TestCopyProp_ChainIsSettledInOneRun(t *testing.T) {
    b := NewBuilder("main")
    x := b.Load(IntrinsicLoadInput, 1, b.LoadConst(0))
    y := b.Load(IntrinsicLoadInput, 1, b.LoadConst(1))

    /* vec2(x, y).yx, then its second lane which is x */
    vec := b.Vec(Chan(x, 0), Chan(y, 0))
    swz := b.Mov(vec, 1, 0)
    lane := b.Mov(swz, 1)
    st := b.Store(IntrinsicStoreOutput, lane)
    impl := b.Finish()

    /* the whole chain collapses to x */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, x, st.Src[0].Value)
    assert.False(t, runCopyProp(t, impl))
}

func TestCopyProp_SwizzleComposesToIdentity(t *testing.T) {
    b := NewBuilder("main")
    v := b.Load(IntrinsicLoadInput, 2, b.LoadConst(0))
    a := b.Mov(v, 1, 0)
    c := b.Mov(a, 1, 0)
    st := b.Store(IntrinsicStoreOutput, c)
    impl := b.Finish()

    /* the second mov becomes swizzleless once the first folds into it */
    require.True(t, runCopyProp(t, impl))
    assert.Equal(t, v, st.Src[0].Value)
    assert.False(t, runCopyProp(t, impl))
}
