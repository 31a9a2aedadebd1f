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
)

// DCE removes every instruction whose results are never used and which has
// no side effects. Liveness flows backwards from the side effects, loops are
// iterated until their header φs stop changing.
type DCE struct{}

func (DCE) Apply(s *Shader) bool {
    ret := false
    s.ForEachImpl(func(impl *Impl) {
        if dceImpl(impl, false) {
            ret = true
        }
    })
    return ret
}

// loopState is the context of the innermost loop being iterated to a
// fixpoint. The preheader is nil outside of any such loop, in which case
// dead instructions are removed right away.
type loopState struct {
    preheader   *Block
    phisChanged bool
}

type dceState struct {
    live     bitset
    fixpoint bool
}

// dceImpl runs DCE over impl. With fixpoint set, loops without a back edge
// are iterated like every other loop instead of being scanned once.
func dceImpl(impl *Impl, fixpoint bool) bool {
    st := dceState { live: newBitset(impl.SSAAlloc), fixpoint: fixpoint }
    progress := st.cfList(impl.Body, new(loopState))

    /* never touches the block structure */
    if progress {
        impl.Preserve(MetadataBlockIndex | MetadataDominance)
    } else {
        impl.Preserve(MetadataAll)
    }

    /* all done */
    return progress
}

func (self *dceState) markSrcLive(src *Src) bool {
    return self.live.set(src.Value.Index)
}

func (self *dceState) markSourcesLive(ins Instr) {
    for _, s := range ins.Sources() {
        self.markSrcLive(s)
    }
}

func (self *dceState) isDefLive(v *Value) bool {
    return self.live.test(v.Index)
}

func (self *dceState) isLive(ins Instr) bool {
    switch p := ins.(type) {
        case *AluInstr          : return self.isDefLive(p.Dest)
        case *TexInstr          : return self.isDefLive(p.Dest)
        case *PhiInstr          : return self.isDefLive(p.Dest)
        case *LoadConstInstr    : return self.isDefLive(p.Dest)
        case *UndefInstr        : return self.isDefLive(p.Dest)
        case *CallInstr         : return true
        case *JumpInstr         : return true
        case *IntrinsicInstr    : return !IntrinsicInfos[p.Op].CanEliminate || (p.Dest != nil && self.isDefLive(p.Dest))
        case *ParallelCopyInstr : return self.isPcopyLive(p)
        default                 : panic("unreachable")
    }
}

func (self *dceState) isPcopyLive(p *ParallelCopyInstr) bool {
    for _, e := range p.Entries {
        if self.isDefLive(e.Dest) {
            return true
        }
    }
    return false
}

func (self *dceState) block(bb *Block, loop *loopState) bool {
    progress := false
    changed := false

    /* scan backwards, users before definitions */
    for i := len(bb.Instrs) - 1; i >= 0; i-- {
        ins := bb.Instrs[i]
        live := self.isLive(ins)

        /* mark the sources, φs only change across back edges */
        if live {
            if phi, ok := ins.(*PhiInstr); ok {
                for _, s := range phi.Src {
                    if self.markSrcLive(s.Src) && s.Pred != loop.preheader {
                        changed = true
                    }
                }
                if phi.indirect != nil {
                    self.markSrcLive(phi.indirect)
                }
            } else {
                self.markSourcesLive(ins)
            }
        }

        /* inside a fixpoint only record the verdict */
        if loop.preheader != nil {
            ins.base().live = live
        } else if !live {
            bb.Remove(ins)
            atomic.AddUint64(&InstrsEliminated, 1)
            progress = true
        }
    }

    /* the header is the last block visited in a loop body */
    loop.phisChanged = changed
    return progress
}

func (self *dceState) cfList(list []CFNode, parent *loopState) bool {
    progress := false
    for i := len(list) - 1; i >= 0; i-- {
        switch n := list[i].(type) {
            case *Block: {
                if self.block(n, parent) {
                    progress = true
                }
            }

            /* branches in reverse, then the condition */
            case *If: {
                if self.cfList(n.Else, parent) { progress = true }
                if self.cfList(n.Then, parent) { progress = true }
                self.markSrcLive(n.Condition)
            }

            /* loops */
            case *Loop: {
                if self.loop(n, list[i - 1].(*Block), parent) {
                    progress = true
                }
            }

            /* should not happen */
            default: {
                panic("unreachable")
            }
        }
    }
    return progress
}

func (self *dceState) loop(lp *Loop, preheader *Block, parent *loopState) bool {
    inner := &loopState { preheader: preheader }
    header := lp.Header()

    /* nothing flows back into the header, one scan is enough */
    if !self.fixpoint && len(header.Pred) == 1 && header.Pred[0] == preheader {
        return self.cfList(lp.Body, parent)
    }

    /* mark until the header φs settle */
    for {
        atomic.AddUint64(&LoopFixpointRounds, 1)
        if self.cfList(lp.Body, inner); !inner.phisChanged {
            break
        }
    }

    /* the outermost fixpoint does the removal */
    if parent.preheader != nil {
        return false
    } else {
        return self.sweep(lp)
    }
}

func (self *dceState) sweep(lp *Loop) bool {
    progress := false
    for _, bb := range BlocksIn(lp.Body) {
        for _, ins := range append([]Instr(nil), bb.Instrs...) {
            if !ins.base().live {
                bb.Remove(ins)
                atomic.AddUint64(&InstrsEliminated, 1)
                progress = true
            }
        }
    }
    return progress
}
