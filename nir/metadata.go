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
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

// Metadata is a set of cached analyses attached to an Impl.
type Metadata uint8

const (
    MetadataBlockIndex Metadata = 1 << iota
    MetadataDominance
    MetadataInstrIndex
)

const (
    MetadataNone Metadata = 0
    MetadataAll  Metadata = MetadataBlockIndex | MetadataDominance | MetadataInstrIndex
)

func (self Metadata) Has(m Metadata) bool {
    return self & m == m
}

// Valid returns the analyses currently known to be up to date.
func (self *Impl) Valid() Metadata {
    return self.valid
}

// Require recomputes every analysis in m that is not valid.
func (self *Impl) Require(m Metadata) {
    if m.Has(MetadataDominance) {
        m |= MetadataBlockIndex
    }

    /* block indices */
    if m.Has(MetadataBlockIndex) && !self.valid.Has(MetadataBlockIndex) {
        self.indexBlocks()
        self.valid |= MetadataBlockIndex
    }

    /* instruction indices */
    if m.Has(MetadataInstrIndex) && !self.valid.Has(MetadataInstrIndex) {
        self.indexInstrs()
        self.valid |= MetadataInstrIndex
    }

    /* dominator tree */
    if m.Has(MetadataDominance) && !self.valid.Has(MetadataDominance) {
        self.dom = newDominance(self)
        self.valid |= MetadataDominance
    }
}

// Preserve invalidates every analysis not in m.
func (self *Impl) Preserve(m Metadata) {
    if self.valid &= m; !self.valid.Has(MetadataDominance) {
        self.dom = nil
    }
}

func (self *Impl) indexBlocks() {
    blocks := self.Blocks()
    self.nblocks = len(blocks)

    /* number them in program order */
    for i, bb := range blocks {
        bb.Index = i
    }
}

func (self *Impl) indexInstrs() {
    i := 0
    for _, bb := range self.Blocks() {
        for _, ins := range bb.Instrs {
            ins.base().index = i
            i++
        }
    }
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (self *Impl) Dominates(a *Block, b *Block) bool {
    self.Require(MetadataDominance)
    return self.dom.dominates(a.Index, b.Index)
}

// ImmediateDominator returns the immediate dominator of b, or nil for the
// entry block and unreachable blocks.
func (self *Impl) ImmediateDominator(b *Block) *Block {
    self.Require(MetadataDominance)
    return self.dom.idom[b.Index]
}

// Reachable reports whether b can be reached from the entry block.
func (self *Impl) Reachable(b *Block) bool {
    self.Require(MetadataDominance)
    return self.dom.depth[b.Index] >= 0
}

type dominance struct {
    idom  []*Block
    depth []int
}

func newDominance(impl *Impl) *dominance {
    blocks := impl.Blocks()
    cfg := simple.NewDirectedGraph()

    /* one node per block */
    for _, bb := range blocks {
        cfg.AddNode(simple.Node(bb.Index))
    }

    /* control flow edges, self-loops never change dominance */
    for _, bb := range blocks {
        for _, s := range bb.Successors() {
            if s != bb {
                cfg.SetEdge(cfg.NewEdge(simple.Node(bb.Index), simple.Node(s.Index)))
            }
        }
    }

    /* entry is the first block */
    dt := flow.Dominators(simple.Node(blocks[0].Index), cfg)
    ret := &dominance {
        idom  : make([]*Block, len(blocks)),
        depth : make([]int, len(blocks)),
    }

    /* immediate dominators */
    for _, bb := range blocks {
        if p := dt.DominatorOf(int64(bb.Index)); p != nil {
            ret.idom[bb.Index] = blocks[p.ID()]
        }
    }

    /* depth in the dominator tree, -1 for unreachable blocks */
    for i := range ret.depth {
        ret.depth[i] = -1
    }

    /* walk the tree from the root */
    ret.fill(dt, dt.Root(), 0)
    return ret
}

func (self *dominance) fill(dt flow.DominatorTree, n graph.Node, depth int) {
    self.depth[n.ID()] = depth
    for _, c := range dt.DominatedBy(n.ID()) {
        self.fill(dt, c, depth + 1)
    }
}

func (self *dominance) dominates(a int, b int) bool {
    if self.depth[a] < 0 || self.depth[b] < 0 {
        return false
    }

    /* climb up from b until it reaches the depth of a */
    for self.depth[b] > self.depth[a] {
        b = self.idom[b].Index
    }

    /* they must be the same block */
    return a == b
}
