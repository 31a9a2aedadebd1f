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

// ValidationError lists every problem found in a function body.
type ValidationError struct {
    Function string
    Problems []string
}

func (self *ValidationError) Error() string {
    return fmt.Sprintf(
        "invalid IR in function %s:\n    %s",
        self.Function,
        strings.Join(self.Problems, "\n    "),
    )
}

type validator struct {
    impl     *Impl
    defs     map[*Value]Instr
    ifs      map[*If]*Block
    problems []string
}

func (self *validator) errorf(format string, args ...interface{}) {
    self.problems = append(self.problems, fmt.Sprintf(format, args...))
}

// ValidateShader validates every function of the shader, it stops at the
// first invalid one.
func ValidateShader(s *Shader) error {
    for _, fp := range s.Functions {
        if fp.Impl != nil {
            if err := Validate(fp.Impl); err != nil {
                return err
            }
        }
    }
    return nil
}

// Validate checks the structural and SSA invariants of impl, and returns a
// *ValidationError if anything is wrong.
func Validate(impl *Impl) error {
    v := &validator {
        impl : impl,
        defs : make(map[*Value]Instr),
        ifs  : make(map[*If]*Block),
    }

    /* the shape of the tree comes first, nothing else makes sense without it */
    if v.structure(); len(v.problems) != 0 {
        return v.result()
    }

    /* analyses used below, cached ones may be stale */
    impl.Preserve(MetadataNone)
    impl.Require(MetadataBlockIndex | MetadataDominance | MetadataInstrIndex)
    blocks := impl.Blocks()

    /* collect the definitions */
    for _, bb := range blocks {
        for _, ins := range bb.Instrs {
            v.instr(bb, ins)
        }
    }

    /* check every use against its definition */
    for _, bb := range blocks {
        for _, ins := range bb.Instrs {
            for _, s := range ins.Sources() {
                v.use(ins, s)
            }
        }
    }

    /* if conditions */
    for p, bb := range v.ifs {
        v.ifUse(p, bb)
    }

    /* and the use-lists of every definition */
    for val := range v.defs {
        v.uses(val)
    }

    /* all done */
    return v.result()
}

func (self *validator) result() error {
    if len(self.problems) == 0 {
        return nil
    }

    /* find the function name */
    name := "<anonymous>"
    if self.impl.Function != nil {
        name = self.impl.Function.Name
    }

    /* construct the error */
    return &ValidationError {
        Function: name,
        Problems: self.problems,
    }
}

func (self *validator) structure() {
    q := lane.NewQueue()
    q.Enqueue(CFNode(self.impl))

    /* visit the tree breadth-first */
    for !q.Empty() {
        var lists [][]CFNode
        node := q.Dequeue().(CFNode)

        /* the lists owned by this node */
        switch p := node.(type) {
            case *Impl : lists = [][]CFNode { p.Body }
            case *Loop : lists = [][]CFNode { p.Body }
            case *If   : lists = [][]CFNode { p.Then, p.Else }
            default    : panic("unreachable")
        }

        /* check each of them */
        for _, list := range lists {
            self.list(node, list)
            for i, n := range list {
                switch p := n.(type) {
                    case *Block : continue
                    case *If    : q.Enqueue(n); self.ifs[p] = prevBlock(list, i)
                    case *Loop  : q.Enqueue(n)
                }
            }
        }
    }
}

func (self *validator) list(parent CFNode, list []CFNode) {
    if len(list) == 0 {
        self.errorf("empty CF list in %s", parent)
        return
    }

    /* must start and end with a block */
    if _, ok := list[0].(*Block); !ok {
        self.errorf("CF list in %s does not start with a block", parent)
    }
    if _, ok := list[len(list) - 1].(*Block); !ok {
        self.errorf("CF list in %s does not end with a block", parent)
    }

    /* blocks must be separated, and point back to the parent */
    for i, n := range list {
        if n.Parent() != parent {
            self.errorf("%s has a wrong parent", n)
        }
        if _, ok := n.(*Block); ok && i > 0 {
            if _, prev := list[i - 1].(*Block); prev {
                self.errorf("adjacent blocks in CF list of %s", parent)
            }
        }
    }
}

func (self *validator) instr(bb *Block, ins Instr) {
    if ins.Block() != bb {
        self.errorf("%s: instruction is in bb_%d but points to another block", ins, bb.Index)
    }

    /* φs must be grouped at the top, jumps at the bottom */
    switch p := ins.(type) {
        case *PhiInstr  : self.phi(bb, p)
        case *JumpInstr : if bb.Instrs[len(bb.Instrs) - 1] != ins { self.errorf("%s: jump is not the last instruction of bb_%d", ins, bb.Index) }
        case *AluInstr  : self.alu(p)
    }

    /* record the definitions */
    for _, d := range ins.Definitions() {
        if d == nil {
            self.errorf("%s: missing destination", ins)
        } else if prev, ok := self.defs[d]; ok {
            self.errorf("%s: %s is already defined by %s", ins, d, prev)
        } else if d.Def != ins {
            self.errorf("%s: %s points to another definition", ins, d)
        } else if d.Index < 0 || d.Index >= self.impl.SSAAlloc {
            self.errorf("%s: %s has an index out of range", ins, d)
        } else {
            self.defs[d] = ins
        }
    }
}

func (self *validator) alu(p *AluInstr) {
    if n := AluOpInfos[p.Op].NumInputs(); n != len(p.Src) {
        self.errorf("%s: expected %d sources, got %d", p, n, len(p.Src))
    } else if n := AluOpInfos[p.Op].Output; n != 0 && n != p.Dest.Comps {
        self.errorf("%s: expected a %d-component result", p, n)
    }
}

func (self *validator) phi(bb *Block, p *PhiInstr) {
    for _, ins := range bb.Instrs {
        if ins == Instr(p) {
            break
        } else if ins.Type() != InstrPhi {
            self.errorf("%s: φ after a non-φ instruction in bb_%d", p, bb.Index)
            break
        }
    }

    /* one source per predecessor */
    if len(p.Src) != len(bb.Pred) {
        self.errorf("%s: %d sources for %d predecessors", p, len(p.Src), len(bb.Pred))
    }

    /* and they must match */
    for _, pred := range bb.Pred {
        if p.SrcFor(pred) == nil {
            self.errorf("%s: no source for predecessor bb_%d", p, pred.Index)
        }
    }
}

func (self *validator) use(ins Instr, s *Src) {
    if s.Value == nil {
        self.errorf("%s: source without a value", ins)
        return
    }

    /* the use must point back to the instruction */
    if s.Parent != ins || s.ParentIf != nil {
        self.errorf("%s: source %s has a wrong parent", ins, s)
    }

    /* and be linked into the use-list */
    if !s.Linked() || s.slot >= len(s.Value.uses) || s.Value.uses[s.slot] != s {
        self.errorf("%s: source %s is not in the use-list of %s", ins, s, s.Value)
    }

    /* swizzle must stay within the value */
    for i := 0; i < s.Reads(); i++ {
        if s.Swizzle[i] >= s.Value.Comps {
            self.errorf("%s: swizzle of %s reads beyond %d components", ins, s, s.Value.Comps)
            break
        }
    }

    /* the definition must still exist */
    def, ok := self.defs[s.Value]
    if !ok {
        self.errorf("%s: %s is used but not defined", ins, s.Value)
        return
    }

    /* φ uses happen at the end of the predecessor */
    if phi, ok := ins.(*PhiInstr); ok {
        for _, ps := range phi.Src {
            if ps.Src == s {
                self.dominates(def, ps.Pred, nil, ins)
                return
            }
        }
    }

    /* everything else where the instruction is */
    self.dominates(def, ins.Block(), ins, ins)
}

func (self *validator) ifUse(p *If, bb *Block) {
    s := p.Condition
    if s == nil || s.Value == nil {
        self.errorf("%s: missing condition", p)
        return
    }

    /* must be an if-use, linked */
    if s.ParentIf != p || s.Parent != nil {
        self.errorf("%s: condition has a wrong parent", p)
    }
    if !s.Linked() || s.slot >= len(s.Value.ifuses) || s.Value.ifuses[s.slot] != s {
        self.errorf("%s: condition is not in the if-use-list of %s", p, s.Value)
    }

    /* the definition must dominate the branch */
    if def, ok := self.defs[s.Value]; !ok {
        self.errorf("%s: %s is used but not defined", p, s.Value)
    } else if bb != nil {
        self.dominates(def, bb, nil, p)
    }
}

func (self *validator) dominates(def Instr, bb *Block, at Instr, user fmt.Stringer) {
    db := def.Block()
    if !self.impl.Reachable(bb) {
        return
    }

    /* same block, must come first */
    if db == bb {
        if at != nil && def.base().index >= at.base().index {
            self.errorf("%s: uses %s before its definition", user, def.Definitions())
        }
    } else if !self.impl.Dominates(db, bb) {
        self.errorf("%s: definition in bb_%d does not dominate bb_%d", user, db.Index, bb.Index)
    }
}

func prevBlock(list []CFNode, i int) *Block {
    if i == 0 {
        return nil
    } else if bb, ok := list[i - 1].(*Block); ok {
        return bb
    } else {
        return nil
    }
}

func (self *validator) uses(val *Value) {
    for i, s := range val.uses {
        if s.slot != i {
            self.errorf("%s: use-list slot mismatch for %s", val, s)
        } else if s.Parent == nil || s.Parent.Block() == nil {
            self.errorf("%s: dangling use %s", val, s)
        } else if !containsSrc(s.Parent.Sources(), s) {
            self.errorf("%s: %s is not a source of %s", val, s, s.Parent)
        }
    }

    /* if-uses */
    for i, s := range val.ifuses {
        if s.slot != i {
            self.errorf("%s: if-use-list slot mismatch", val)
        } else if _, ok := self.ifs[s.ParentIf]; !ok {
            self.errorf("%s: dangling if-use", val)
        }
    }
}

func containsSrc(list []*Src, s *Src) bool {
    for _, v := range list {
        if v == s {
            return true
        }
    }
    return false
}
