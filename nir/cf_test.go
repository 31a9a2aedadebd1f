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
    `testing`

    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

// buildCountedLoop builds
//
//     bb_0: i0 = 0; one = 1
//     loop {
//         bb_1: i = φ(bb_0: i0, bb_4: i1); c = load_input
//         if c { bb_2: break } else { bb_3 }
//         bb_4: i1 = iadd i, one
//     }
//     bb_5: (store_output i if keep)
func buildCountedLoop(keep bool) (*Impl, *PhiInstr, *Value) {
    b := NewBuilder("main")
    init := b.LoadConst(0)
    one := b.LoadConst(1)
    off := b.LoadConst(0)
    pre := b.Block()

    /* loop header */
    b.PushLoop()
    phi := b.Phi(1)
    cond := b.Load(IntrinsicLoadInput, 1, off)

    /* exit condition */
    b.PushIf(cond)
    b.Break()
    b.PopIf()

    /* latch */
    next := b.Alu(OpIAdd, phi.Dest, one)
    phi.AddSrc(pre, init)
    phi.AddSrc(b.Block(), next)
    b.PopLoop()

    /* optional use after the loop */
    if keep {
        b.Store(IntrinsicStoreOutput, phi.Dest)
    }

    /* link everything */
    return b.Finish(), phi, next
}

func TestCF_Edges(t *testing.T) {
    impl, _, _ := buildCountedLoop(false)
    blocks := impl.Blocks()
    require.Len(t, blocks, 7)

    /* pre -> header */
    assert.Equal(t, []*Block { blocks[1] }, blocks[0].Successors())

    /* header branches to then / else */
    assert.Equal(t, []*Block { blocks[2], blocks[3] }, blocks[1].Successors())
    assert.Equal(t, []*Block { blocks[0], blocks[4] }, blocks[1].Pred)

    /* break leaves the loop, else falls to the latch */
    assert.Equal(t, []*Block { blocks[5] }, blocks[2].Successors())
    assert.Equal(t, []*Block { blocks[4] }, blocks[3].Successors())

    /* latch loops back, exit falls to the end block */
    assert.Equal(t, []*Block { blocks[1] }, blocks[4].Successors())
    assert.Equal(t, []*Block { impl.End }, blocks[5].Successors())
    assert.Empty(t, impl.End.Successors())
}

func TestCF_LoopNeighbours(t *testing.T) {
    impl, _, _ := buildCountedLoop(false)
    lp := impl.Body[1].(*Loop)
    assert.Equal(t, impl.Body[0], CFNode(lp.Preheader()))
    assert.Equal(t, impl.Body[2], CFNode(lp.After()))
    assert.Equal(t, lp.Body[0], CFNode(lp.Header()))
}

func TestCF_Dominance(t *testing.T) {
    impl, _, _ := buildCountedLoop(false)
    blocks := impl.Blocks()
    impl.Require(MetadataDominance)
    assert.True(t, impl.Valid().Has(MetadataDominance | MetadataBlockIndex))

    /* the header dominates the whole body and the exit */
    for _, bb := range blocks[1:6] {
        assert.True(t, impl.Dominates(blocks[1], bb), "bb_%d", bb.Index)
    }

    /* branches do not dominate each other */
    assert.False(t, impl.Dominates(blocks[2], blocks[3]))
    assert.False(t, impl.Dominates(blocks[2], blocks[4]))
    assert.True(t, impl.Dominates(blocks[3], blocks[4]))
    assert.Equal(t, blocks[1], impl.ImmediateDominator(blocks[3]))
    assert.Equal(t, blocks[3], impl.ImmediateDominator(blocks[4]))
    assert.Equal(t, blocks[2], impl.ImmediateDominator(blocks[5]))
    assert.Nil(t, impl.ImmediateDominator(blocks[0]))
}

func TestCF_Preserve(t *testing.T) {
    impl, _, _ := buildCountedLoop(false)
    impl.Require(MetadataAll)
    require.Equal(t, MetadataAll, impl.Valid())
    impl.Preserve(MetadataBlockIndex)
    assert.Equal(t, MetadataBlockIndex, impl.Valid())
    impl.Preserve(MetadataNone)
    assert.Equal(t, MetadataNone, impl.Valid())
}

func TestCF_ReturnTargetsEnd(t *testing.T) {
    b := NewBuilder("main")
    c := b.Load(IntrinsicLoadInput, 1, b.LoadConst(0))
    b.PushIf(c)
    b.Return()
    b.PushElse()
    b.Store(IntrinsicStoreOutput, c)
    b.PopIf()
    impl := b.Finish()
    blocks := impl.Blocks()
    assert.Equal(t, []*Block { impl.End }, blocks[1].Successors())
    assert.Equal(t, []*Block { blocks[3] }, blocks[2].Successors())
    assert.Equal(t, []*Block { blocks[1], blocks[3] }, impl.End.Pred)
    require.NoError(t, Validate(impl))
}

func TestCF_BreakOutsideLoop(t *testing.T) {
    b := NewBuilder("main")
    b.Break()
    assert.Panics(t, func() { b.Finish() })
}

func TestCF_UnclosedConstruct(t *testing.T) {
    b := NewBuilder("main")
    b.PushLoop()
    assert.Panics(t, func() { b.Finish() })
}

func TestValidate_Valid(t *testing.T) {
    impl, _, _ := buildCountedLoop(true)
    require.NoError(t, Validate(impl))
}

func TestValidate_PhiMissingSource(t *testing.T) {
    impl, phi, _ := buildCountedLoop(true)
    phi.Src[1].drop()
    phi.Src = phi.Src[:1]
    err := Validate(impl)
    require.Error(t, err)
    spew.Dump(err)
    verr, ok := err.(*ValidationError)
    require.True(t, ok)
    assert.Equal(t, "main", verr.Function)
    assert.NotEmpty(t, verr.Problems)
}

func TestValidate_DanglingUse(t *testing.T) {
    impl, _, next := buildCountedLoop(true)
    next.Def.Block().Remove(next.Def)
    require.Error(t, Validate(impl))
}

func TestValidate_SwizzleOutOfRange(t *testing.T) {
    b := NewBuilder("main")
    v := b.LoadConst(1, 2)
    p := b.BuildAlu(OpFAdd, 2, v, v)
    p.Src[1].Swizzle[1] = 3
    b.Store(IntrinsicStoreOutput, p.Dest)
    require.Error(t, Validate(b.Finish()))
}

func TestValidate_IgnoresStaleMetadata(t *testing.T) {
    b := NewBuilder("main")
    a := b.LoadConst(1)
    b.Store(IntrinsicStoreOutput, b.Alu(OpFAdd, a, a))
    impl := b.Finish()
    impl.Require(MetadataAll)

    /* move the use in front of its definition behind the caches' back */
    bb := impl.Blocks()[0]
    bb.Instrs[0], bb.Instrs[1] = bb.Instrs[1], bb.Instrs[0]
    require.Equal(t, MetadataAll, impl.Valid())
    err := Validate(impl)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "before its definition")
}

func TestPrint(t *testing.T) {
    b := NewBuilder("main")
    v := b.LoadConst(1, 2)
    p := b.BuildAlu(OpFAdd, 2, v, v)
    p.Src[1].Negate = true
    p.Src[1].Abs = true
    p.Src[1].Swizzle = [MaxComps]uint8 { 1, 1 }
    b.Store(IntrinsicStoreOutput, p.Dest)
    b.Finish()
    assert.Equal(t, "%1 = fadd %0, -|%0.yy|", p.String())
}
