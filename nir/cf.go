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
    `strings`

    `github.com/oleiade/lane`
)

// CFNode is a node of the structured control flow tree: a *Block, an *If or
// a *Loop. Every CF list starts and ends with a block and never contains two
// adjacent blocks.
type CFNode interface {
    fmt.Stringer
    Parent() CFNode
    cfnode()
}

type Block struct {
    Instrs []Instr
    Pred   []*Block
    Succ   [2]*Block
    Index  int
    parent CFNode
}

func (*Block) cfnode() {}

func (self *Block) Parent() CFNode {
    return self.parent
}

// Jump returns the trailing jump of the block, if any.
func (self *Block) Jump() *JumpInstr {
    if n := len(self.Instrs); n == 0 {
        return nil
    } else if j, ok := self.Instrs[n - 1].(*JumpInstr); ok {
        return j
    } else {
        return nil
    }
}

// Successors returns the non-nil successor edges.
func (self *Block) Successors() []*Block {
    if self.Succ[1] != nil {
        return self.Succ[:]
    } else if self.Succ[0] != nil {
        return self.Succ[:1]
    } else {
        return nil
    }
}

func (self *Block) String() string {
    buf := make([]string, 0, len(self.Instrs) + 1)
    buf = append(buf, fmt.Sprintf("bb_%d:", self.Index))

    /* dump every instruction */
    for _, ins := range self.Instrs {
        buf = append(buf, "    " + ins.String())
    }

    /* successor list */
    if succ := self.Successors(); len(succ) != 0 {
        ids := make([]string, len(succ))
        for i, s := range succ { ids[i] = fmt.Sprintf("bb_%d", s.Index) }
        buf = append(buf, "    # succs: " + strings.Join(ids, " "))
    }

    /* join them together */
    return strings.Join(buf, "\n")
}

func (self *Block) append(ins Instr) {
    ins.base().block = self
    self.Instrs = append(self.Instrs, ins)
}

// Remove detaches the instruction from the block and drops all of its uses.
// The values it defines must not be referenced anymore.
func (self *Block) Remove(ins Instr) {
    for i, v := range self.Instrs {
        if v == ins {
            dropSources(ins)
            self.Instrs = append(self.Instrs[:i], self.Instrs[i + 1:]...)
            ins.base().block = nil
            return
        }
    }
    panic("nir: instruction is not in this block: " + ins.String())
}

func dropSources(ins Instr) {
    for _, s := range ins.Sources() {
        s.drop()
    }
}

type If struct {
    Condition *Src
    Then      []CFNode
    Else      []CFNode
    parent    CFNode
}

func (*If) cfnode() {}

func (self *If) Parent() CFNode {
    return self.parent
}

func (self *If) String() string {
    return fmt.Sprintf("if %s", self.Condition)
}

func (self *If) setCondition(v *Value) {
    self.Condition = &Src {
        Value    : v,
        ParentIf : self,
        slot     : -1,
    }

    /* identity swizzle, conditions are scalar */
    for i := range self.Condition.Swizzle {
        self.Condition.Swizzle[i] = uint8(i)
    }

    /* register the if-use */
    v.link(self.Condition)
}

type Loop struct {
    Body   []CFNode
    parent CFNode
}

func (*Loop) cfnode() {}

func (self *Loop) Parent() CFNode {
    return self.parent
}

func (self *Loop) String() string {
    return fmt.Sprintf("loop (header bb_%d)", self.Header().Index)
}

// Header returns the first block of the loop body.
func (self *Loop) Header() *Block {
    return self.Body[0].(*Block)
}

// Preheader returns the block right before the loop.
func (self *Loop) Preheader() *Block {
    list := siblings(self)
    for i, n := range list {
        if n == CFNode(self) {
            return list[i - 1].(*Block)
        }
    }
    panic("nir: loop is not in its parent")
}

// After returns the block right after the loop.
func (self *Loop) After() *Block {
    list := siblings(self)
    for i, n := range list {
        if n == CFNode(self) {
            return list[i + 1].(*Block)
        }
    }
    panic("nir: loop is not in its parent")
}

func siblings(node CFNode) []CFNode {
    switch p := node.Parent().(type) {
        case *Impl : return p.Body
        case *Loop : return p.Body
        case *If   : if containsNode(p.Then, node) { return p.Then } else { return p.Else }
        default    : panic("unreachable")
    }
}

func containsNode(list []CFNode, node CFNode) bool {
    for _, n := range list {
        if n == node {
            return true
        }
    }
    return false
}

func firstBlock(node CFNode) *Block {
    switch n := node.(type) {
        case *Block : return n
        case *If    : return firstBlock(n.Then[0])
        case *Loop  : return n.Header()
        default     : panic("unreachable")
    }
}

// Impl is the body of a function. End is the synthetic exit block, it holds
// no instructions and is the target of every return.
type Impl struct {
    Function *Function
    Body     []CFNode
    End      *Block
    SSAAlloc int
    valid    Metadata
    dom      *dominance
    nblocks  int
}

func (*Impl) cfnode() {}
func (*Impl) Parent() CFNode { return nil }

func (self *Impl) String() string {
    var sb strings.Builder
    self.Require(MetadataBlockIndex)
    printList(&sb, self.Body, 1)
    return sb.String()
}

// NewValue allocates a fresh SSA value with n lanes.
func (self *Impl) NewValue(comps int) *Value {
    if comps < 1 || comps > MaxComps {
        panic(fmt.Sprintf("nir: invalid number of components: %d", comps))
    }

    /* allocate the index */
    v := &Value { Index: self.SSAAlloc, Comps: uint8(comps) }
    self.SSAAlloc++
    return v
}

// Blocks returns every block in program order, the end block last.
func (self *Impl) Blocks() []*Block {
    return append(BlocksIn(self.Body), self.End)
}

// ForEachBlock calls fn with every block in program order, the end block last.
func (self *Impl) ForEachBlock(fn func(bb *Block)) {
    for _, bb := range self.Blocks() {
        fn(bb)
    }
}

// ForEachInstr calls fn with every instruction in program order. Removing
// the current instruction from within fn is allowed.
func (self *Impl) ForEachInstr(fn func(ins Instr)) {
    for _, bb := range self.Blocks() {
        for _, ins := range append([]Instr(nil), bb.Instrs...) {
            if ins.Block() == bb {
                fn(ins)
            }
        }
    }
}

// Rebuild recomputes every predecessor and successor edge from the
// structure of the CF tree.
func (self *Impl) Rebuild() {
    blocks := self.Blocks()

    /* reset all the edges */
    for _, bb := range blocks {
        bb.Pred = nil
        bb.Succ = [2]*Block{}
    }

    /* link the successors */
    self.linkList(self.Body, self.End, nil, nil)

    /* derive the predecessors in program order */
    for _, bb := range blocks {
        for _, s := range bb.Successors() {
            s.Pred = append(s.Pred, bb)
        }
    }

    /* everything derived from the edges is stale now */
    self.valid = MetadataNone
    self.dom = nil
}

func (self *Impl) linkList(list []CFNode, next *Block, header *Block, exit *Block) {
    for i, node := range list {
        follow := next
        if i + 1 < len(list) {
            follow = firstBlock(list[i + 1])
        }

        /* link by node type */
        switch n := node.(type) {
            case *Block: {
                if j := n.Jump(); j != nil {
                    n.Succ[0] = self.jumpTarget(j, header, exit)
                } else if i + 1 == len(list) {
                    n.Succ[0] = next
                } else if br, ok := list[i + 1].(*If); ok {
                    n.Succ = [2]*Block { firstBlock(br.Then[0]), firstBlock(br.Else[0]) }
                } else {
                    n.Succ[0] = follow
                }
            }

            /* both branches continue to the block after the if */
            case *If: {
                self.linkList(n.Then, follow, header, exit)
                self.linkList(n.Else, follow, header, exit)
            }

            /* falling off the end of the body loops back */
            case *Loop: {
                self.linkList(n.Body, n.Header(), n.Header(), follow)
            }

            /* should not happen */
            default: {
                panic("unreachable")
            }
        }
    }
}

func (self *Impl) jumpTarget(j *JumpInstr, header *Block, exit *Block) *Block {
    switch j.Kind {
        case JumpReturn: {
            return self.End
        }

        /* break and continue are only valid inside loops */
        case JumpBreak, JumpContinue: {
            if header == nil {
                panic("nir: " + j.String() + " outside of a loop")
            } else if j.Kind == JumpBreak {
                return exit
            } else {
                return header
            }
        }

        /* should not happen */
        default: {
            panic("unreachable")
        }
    }
}

// BlocksIn returns every block of a CF list in program order.
func BlocksIn(list []CFNode) []*Block {
    var ret []*Block
    st := lane.NewStack()
    pushCFList(st, list)

    /* walk the tree depth-first */
    for !st.Empty() {
        switch n := st.Pop().(type) {
            case *Block : ret = append(ret, n)
            case *If    : pushCFList(st, n.Else); pushCFList(st, n.Then)
            case *Loop  : pushCFList(st, n.Body)
            default     : panic("unreachable")
        }
    }

    /* all done */
    return ret
}

func pushCFList(st *lane.Stack, list []CFNode) {
    for i := len(list) - 1; i >= 0; i-- {
        st.Push(list[i])
    }
}

type Stage uint8

const (
    StageVertex Stage = iota
    StageFragment
    StageCompute
)

func (self Stage) String() string {
    switch self {
        case StageVertex   : return "vertex"
        case StageFragment : return "fragment"
        case StageCompute  : return "compute"
        default            : return fmt.Sprintf("stage(%d)", uint8(self))
    }
}

type Function struct {
    Name string
    Impl *Impl
}

type Shader struct {
    Name      string
    Stage     Stage
    Functions []*Function
}

// ForEachImpl calls fn with every function body of the shader.
func (self *Shader) ForEachImpl(fn func(impl *Impl)) {
    for _, fp := range self.Functions {
        if fp.Impl != nil {
            fn(fp.Impl)
        }
    }
}

func (self *Shader) String() string {
    buf := []string { fmt.Sprintf("shader: %s (%s)", self.Name, self.Stage) }
    for _, fp := range self.Functions {
        buf = append(buf, fmt.Sprintf("impl %s {", fp.Name))
        if fp.Impl != nil { buf = append(buf, fp.Impl.String()) }
        buf = append(buf, "}")
    }
    return strings.Join(buf, "\n")
}
