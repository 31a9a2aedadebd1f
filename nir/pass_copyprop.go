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

    `github.com/oleiade/lane`
)

// CopyProp forwards the sources of mov and vecN instructions into their
// users, and removes the copies that become unused.
type CopyProp struct{}

func (CopyProp) Apply(s *Shader) bool {
    ret := false
    s.ForEachImpl(func(impl *Impl) {
        if copyPropImpl(impl) {
            ret = true
        }
    })
    return ret
}

func copyPropImpl(impl *Impl) bool {
    progress := false
    revisit := lane.NewQueue()

    /* visit every copy in program order */
    impl.ForEachInstr(func(ins Instr) {
        if p, ok := ins.(*AluInstr); ok && isCopy(p) {
            if copyPropInstr(p, revisit) {
                progress = true
            }
        }
    })

    /* copies whose uses or sources changed after their visit */
    for !revisit.Empty() {
        if p := revisit.Dequeue().(*AluInstr); p.Block() != nil {
            if copyPropInstr(p, revisit) {
                progress = true
            }
        }
    }

    /* never touches the block structure */
    if progress {
        impl.Preserve(MetadataBlockIndex | MetadataDominance)
    } else {
        impl.Preserve(MetadataAll)
    }

    /* all done */
    return progress
}

func isCopy(p *AluInstr) bool {
    switch {
        case p.Saturate     : return false
        case p.Op == OpMov  : return !p.Src[0].Abs && !p.Src[0].Negate
        case p.Op.IsVec()   : return !hasModifiers(p.Src)
        default             : return false
    }
}

func hasModifiers(srcs []*Src) bool {
    for _, s := range srcs {
        if s.Abs || s.Negate {
            return true
        }
    }
    return false
}

// isSwizzlelessMove reports whether the copy reproduces its source exactly,
// lane for lane.
func isSwizzlelessMove(p *AluInstr) bool {
    nb := int(p.Dest.Comps)
    def := p.Src[0].Value

    /* width must not change */
    if int(def.Comps) != nb {
        return false
    }

    /* mov with an identity swizzle */
    if p.Op == OpMov {
        return p.Src[0].identity(nb)
    }

    /* vecN of lane i of the same value */
    for i := 0; i < nb; i++ {
        if p.Src[i].Swizzle[0] != uint8(i) || p.Src[i].Value != def {
            return false
        }
    }

    /* all checked */
    return true
}

func copyPropInstr(p *AluInstr, revisit *lane.Queue) bool {
    progress := false
    uses := p.Dest.Uses()

    /* ordinary uses */
    for _, use := range uses {
        if copyPropUse(use, p) {
            progress = true
            atomic.AddUint64(&CopiesFolded, 1)
            enqueueCopies(use, revisit)
        }
    }

    /* if-conditions */
    for _, use := range p.Dest.IfUses() {
        if copyPropSrc(use, p) {
            progress = true
            atomic.AddUint64(&CopiesFolded, 1)
            enqueueCopies(use, revisit)
        }
    }

    /* remove the copy only if this visit made it dead */
    if progress && p.Dest.Unused() {
        p.Block().Remove(p)
        atomic.AddUint64(&CopiesRemoved, 1)
    }

    /* all done */
    return progress
}

func enqueueCopies(use *Src, revisit *lane.Queue) {
    if p, ok := use.Value.Def.(*AluInstr); ok && isCopy(p) {
        revisit.Enqueue(p)
    }
    if p, ok := use.Parent.(*AluInstr); ok && isCopy(p) {
        revisit.Enqueue(p)
    }
}

func copyPropUse(use *Src, copy *AluInstr) bool {
    if user, ok := use.Parent.(*AluInstr); ok {
        for i, s := range user.Src {
            if s == use {
                return copyPropAluSrc(user, i, copy)
            }
        }
    }
    return copyPropSrc(use, copy)
}

// copyPropSrc folds a use that cannot carry a swizzle, it only works for
// moves that reproduce their source exactly.
func copyPropSrc(use *Src, copy *AluInstr) bool {
    if !isSwizzlelessMove(copy) {
        return false
    } else {
        use.Rewrite(copy.Src[0].Value)
        return true
    }
}

func copyPropAluSrc(user *AluInstr, idx int, copy *AluInstr) bool {
    use := user.Src[idx]
    nb := user.SrcComponents(idx)

    /* mov: compose the swizzles */
    if copy.Op == OpMov {
        for i := 0; i < nb; i++ {
            use.Swizzle[i] = copy.Src[0].Swizzle[use.Swizzle[i]]
        }
        use.Rewrite(copy.Src[0].Value)
        return true
    }

    /* vecN: every lane read must come from the same value */
    def := copy.Src[use.Swizzle[0]].Value
    for i := 1; i < nb; i++ {
        if copy.Src[use.Swizzle[i]].Value != def {
            return false
        }
    }

    /* select the lane each source reads */
    for i := 0; i < nb; i++ {
        use.Swizzle[i] = copy.Src[use.Swizzle[i]].Swizzle[0]
    }

    /* point to the common source */
    use.Rewrite(def)
    return true
}
