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
    `fmt`
)

// Channel selects a single lane of a value.
type Channel struct {
    Value *Value
    Comp  uint8
}

func Chan(v *Value, comp uint8) Channel {
    return Channel { Value: v, Comp: comp }
}

// TexOperand is a typed texture source.
type TexOperand struct {
    Kind  TexSrcKind
    Value *Value
}

type builderFrame struct {
    node  CFNode
    outer *[]CFNode
}

// Builder constructs a function body in program order. Control flow is
// opened with PushIf / PushLoop and closed with PopIf / PopLoop, every
// instruction goes to the end of the current block.
type Builder struct {
    impl   *Impl
    list   *[]CFNode
    parent CFNode
    frames []builderFrame
}

func NewBuilder(name string) *Builder {
    impl := new(Impl)
    impl.Function = &Function { Name: name, Impl: impl }
    impl.End = &Block { parent: impl }

    /* the entry block */
    ret := &Builder { impl: impl, list: &impl.Body, parent: impl }
    ret.openBlock()
    return ret
}

// Impl returns the function body under construction.
func (self *Builder) Impl() *Impl {
    return self.impl
}

// Block returns the current insertion block.
func (self *Builder) Block() *Block {
    return (*self.list)[len(*self.list) - 1].(*Block)
}

// Finish closes the function body and computes its control flow edges.
func (self *Builder) Finish() *Impl {
    if len(self.frames) != 0 {
        panic(fmt.Sprintf("nir: %d unclosed control flow constructs", len(self.frames)))
    }

    /* link everything */
    self.impl.Rebuild()
    self.impl.Require(MetadataBlockIndex)
    return self.impl
}

func (self *Builder) openBlock() *Block {
    bb := &Block { parent: self.parent }
    *self.list = append(*self.list, bb)
    return bb
}

func (self *Builder) insert(ins Instr) {
    self.Block().append(ins)
}

func (self *Builder) value(ins Instr, comps int) *Value {
    v := self.impl.NewValue(comps)
    v.Def = ins
    return v
}

func (self *Builder) LoadConst(values ...uint64) *Value {
    p := &LoadConstInstr { Values: values }
    p.Dest = self.value(p, len(values))
    self.insert(p)
    return p.Dest
}

func (self *Builder) Undef(comps int) *Value {
    p := new(UndefInstr)
    p.Dest = self.value(p, comps)
    self.insert(p)
    return p.Dest
}

// BuildAlu inserts an ALU instruction with a comps-wide result. Sources get
// identity swizzles and no modifiers, callers may adjust them afterwards.
func (self *Builder) BuildAlu(op AluOp, comps int, srcs ...*Value) *AluInstr {
    info := AluOpInfos[op]
    if len(srcs) != info.NumInputs() {
        panic(fmt.Sprintf("nir: %s takes %d sources, got %d", op, info.NumInputs(), len(srcs)))
    }

    /* build the instruction */
    p := &AluInstr { Op: op, Src: make([]*Src, len(srcs)) }
    p.Dest = self.value(p, comps)

    /* link all the sources */
    for i, v := range srcs {
        p.Src[i] = newSrc(p, v)
    }

    /* add to the current block */
    self.insert(p)
    return p
}

// Alu inserts an ALU instruction, the result width is taken from the opcode
// or from the first source for per-component opcodes.
func (self *Builder) Alu(op AluOp, srcs ...*Value) *Value {
    if n := AluOpInfos[op].Output; n != 0 {
        return self.BuildAlu(op, int(n), srcs...).Dest
    } else {
        return self.BuildAlu(op, int(srcs[0].Comps), srcs...).Dest
    }
}

// Mov copies v, optionally through a swizzle. The result is as wide as the
// swizzle, or as v when no swizzle is given.
func (self *Builder) Mov(v *Value, swizzle ...uint8) *Value {
    if len(swizzle) == 0 {
        return self.BuildAlu(OpMov, int(v.Comps), v).Dest
    }

    /* swizzled move */
    p := self.BuildAlu(OpMov, len(swizzle), v)
    copy(p.Src[0].Swizzle[:], swizzle)
    return p.Dest
}

// Vec gathers one lane from each channel into a new vector.
func (self *Builder) Vec(channels ...Channel) *Value {
    srcs := make([]*Value, len(channels))
    for i, ch := range channels { srcs[i] = ch.Value }

    /* pick the lane of every source */
    p := self.BuildAlu(VecOp(len(channels)), len(channels), srcs...)
    for i, ch := range channels { p.Src[i].Swizzle[0] = ch.Comp }
    return p.Dest
}

// Intrinsic inserts an intrinsic. comps is ignored for intrinsics without a
// result.
func (self *Builder) Intrinsic(op Intrinsic, comps int, srcs ...*Value) *IntrinsicInstr {
    info := IntrinsicInfos[op]
    if len(srcs) != info.NumSrcs {
        panic(fmt.Sprintf("nir: @%s takes %d sources, got %d", op, info.NumSrcs, len(srcs)))
    }

    /* build the instruction */
    p := &IntrinsicInstr { Op: op, Src: make([]*Src, len(srcs)) }
    for i, v := range srcs { p.Src[i] = newSrc(p, v) }

    /* allocate the result if any */
    if info.HasDest {
        p.Dest = self.value(p, comps)
    }

    /* add to the current block */
    self.insert(p)
    return p
}

func (self *Builder) Load(op Intrinsic, comps int, srcs ...*Value) *Value {
    return self.Intrinsic(op, comps, srcs...).Dest
}

func (self *Builder) Store(op Intrinsic, srcs ...*Value) *IntrinsicInstr {
    return self.Intrinsic(op, 0, srcs...)
}

func (self *Builder) Tex(op TexOp, comps int, texture int, sampler int, srcs ...TexOperand) *TexInstr {
    p := &TexInstr { Op: op, Texture: texture, Sampler: sampler }
    p.Dest = self.value(p, comps)

    /* link all the sources */
    for _, s := range srcs {
        p.Src = append(p.Src, TexSrc { Src: newSrc(p, s.Value), Kind: s.Kind })
    }

    /* add to the current block */
    self.insert(p)
    return p
}

func (self *Builder) Call(callee string, params ...*Value) *CallInstr {
    p := &CallInstr { Callee: callee, Params: make([]*Src, len(params)) }
    for i, v := range params { p.Params[i] = newSrc(p, v) }
    self.insert(p)
    return p
}

// Phi inserts an empty φ after the existing φs of the current block. Its
// sources are added with AddSrc once the predecessors are known.
func (self *Builder) Phi(comps int) *PhiInstr {
    bb := self.Block()
    p := new(PhiInstr)
    p.Dest = self.value(p, comps)
    p.block = bb

    /* find the end of the φ group */
    i := 0
    for i < len(bb.Instrs) && bb.Instrs[i].Type() == InstrPhi {
        i++
    }

    /* insert at that position */
    bb.Instrs = append(bb.Instrs, nil)
    copy(bb.Instrs[i + 1:], bb.Instrs[i:])
    bb.Instrs[i] = p
    return p
}

func (self *Builder) ParallelCopy(srcs ...*Value) []*Value {
    p := new(ParallelCopyInstr)
    ret := make([]*Value, len(srcs))

    /* one entry per source */
    for i, v := range srcs {
        ret[i] = self.value(p, int(v.Comps))
        p.Entries = append(p.Entries, ParallelCopyEntry { Dest: ret[i], Src: newSrc(p, v) })
    }

    /* add to the current block */
    self.insert(p)
    return ret
}

func (self *Builder) jump(kind JumpType) {
    self.insert(&JumpInstr { Kind: kind })
}

func (self *Builder) Break()    { self.jump(JumpBreak) }
func (self *Builder) Continue() { self.jump(JumpContinue) }
func (self *Builder) Return()   { self.jump(JumpReturn) }

// PushIf opens an if on cond and starts emitting into its then-branch.
func (self *Builder) PushIf(cond *Value) *If {
    p := &If { parent: self.parent }
    p.setCondition(cond)

    /* add the if to the current list */
    *self.list = append(*self.list, p)
    self.frames = append(self.frames, builderFrame { node: p, outer: self.list })

    /* both branches start with an empty block */
    self.parent = p
    self.list = &p.Else
    self.openBlock()
    self.list = &p.Then
    self.openBlock()
    return p
}

// PushElse switches emission to the else-branch of the innermost if.
func (self *Builder) PushElse() {
    p, ok := self.top().node.(*If)
    if !ok {
        panic("nir: PushElse outside of an if")
    }

    /* switch to the else list */
    self.list = &p.Else
}

func (self *Builder) PopIf() *If {
    p, ok := self.top().node.(*If)
    if !ok {
        panic("nir: PopIf outside of an if")
    }

    /* continue after the if */
    self.pop()
    return p
}

// PushLoop opens a loop and starts emitting into its header block.
func (self *Builder) PushLoop() *Loop {
    p := &Loop { parent: self.parent }
    *self.list = append(*self.list, p)
    self.frames = append(self.frames, builderFrame { node: p, outer: self.list })

    /* the header block */
    self.parent = p
    self.list = &p.Body
    self.openBlock()
    return p
}

func (self *Builder) PopLoop() *Loop {
    p, ok := self.top().node.(*Loop)
    if !ok {
        panic("nir: PopLoop outside of a loop")
    }

    /* continue after the loop */
    self.pop()
    return p
}

func (self *Builder) top() builderFrame {
    if n := len(self.frames); n == 0 {
        panic("nir: no open control flow construct")
    } else {
        return self.frames[n - 1]
    }
}

func (self *Builder) pop() {
    n := len(self.frames) - 1
    fp := self.frames[n]
    self.frames = self.frames[:n]

    /* restore the outer list and open the block after the construct */
    self.list = fp.outer
    self.parent = fp.node.Parent()
    self.openBlock()
}

// NewShader wraps function bodies into a shader.
func NewShader(name string, stage Stage, impls ...*Impl) *Shader {
    ret := &Shader { Name: name, Stage: stage }
    for _, impl := range impls {
        ret.Functions = append(ret.Functions, impl.Function)
    }
    return ret
}
