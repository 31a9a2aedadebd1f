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
    `encoding/binary`
    `fmt`
    `sync/atomic`

    `github.com/bytedance/gopkg/lang/dirtmake`
    `github.com/chenzhuoyu/iasm/expr`
)

const (
    WordSize  = 8
    Alignment = 128
)

var (
    WordsPacked     uint64
    ProgramsEmitted uint64
)

// Block is a basic block of the finalized program. It is also a label, the
// offset of its first instruction is known once the program is laid out.
type Block struct {
    Name   string
    Instrs []*Instr
    Succ   [2]*Block
    pc     int64
    placed bool
}

func (self *Block) String() string {
    return self.Name
}

// Free implements expr.Term, blocks are owned by the program.
func (self *Block) Free() {}

// Evaluate implements expr.Term, it returns the instruction offset of the
// first instruction of the block.
func (self *Block) Evaluate() (int64, error) {
    if !self.placed {
        return 0, fmt.Errorf("block %s is not part of the program", self.Name)
    } else {
        return self.pc, nil
    }
}

// Append adds instructions to the end of the block.
func (self *Block) Append(ins ...*Instr) *Block {
    self.Instrs = append(self.Instrs, ins...)
    return self
}

// Jump sets the successors of the block.
func (self *Block) Jump(succ ...*Block) *Block {
    if len(succ) > len(self.Succ) {
        panic("valhall: too many successors")
    }
    self.Succ = [2]*Block{}
    copy(self.Succ[:], succ)
    return self
}

// Terminal reports whether execution reaching the block does nothing but
// end the program.
func (self *Block) Terminal() bool {
    return isTerminal(self, make(map[*Block]bool))
}

func isTerminal(bb *Block, visited map[*Block]bool) bool {
    if bb == nil || visited[bb] {
        return true
    } else if len(bb.Instrs) != 0 {
        return false
    }

    /* every path out must be terminal as well */
    visited[bb] = true
    return isTerminal(bb.Succ[0], visited) && isTerminal(bb.Succ[1], visited)
}

// Program is the block list of one shader, in emission order.
type Program struct {
    Blocks []*Block
}

// Len returns the number of instruction words before padding.
func (self *Program) Len() int {
    n := 0
    for _, bb := range self.Blocks {
        n += len(bb.Instrs)
    }
    return n
}

func (self *Program) String() string {
    var buf []byte
    for _, bb := range self.Blocks {
        buf = append(buf, bb.Name + ":\n"...)
        for _, ins := range bb.Instrs {
            buf = append(buf, "    " + ins.String() + "\n"...)
        }
    }
    return string(buf)
}

func (self *Program) layout() {
    pc := int64(0)
    for _, bb := range self.Blocks {
        bb.pc = pc
        bb.placed = true
        pc += int64(len(bb.Instrs))
    }
}

func (self *Program) unplace() {
    for _, bb := range self.Blocks {
        bb.placed = false
    }
}

// shouldReturn reports whether ins ends the program, which is the case for
// the last instruction of a block that is only followed by terminal blocks.
func shouldReturn(bb *Block, i int) bool {
    if i != len(bb.Instrs) - 1 {
        return false
    }

    /* any non-terminal successor keeps the program running */
    for _, succ := range bb.Succ {
        if succ != nil && !succ.Terminal() {
            return false
        }
    }
    return true
}

func branchOffset(ins *Instr, pc int64) int64 {
    if ins.Target == nil {
        return int64(ins.Branch)
    }

    /* relative to the next instruction */
    off := expr.Ref(ins.Target).Sub(expr.Int(pc + 1))
    ret, err := off.Evaluate()

    /* all labels are known after layout */
    if off.Free(); err != nil {
        panic("valhall: " + err.Error())
    }
    return ret
}

// Emit packs every instruction of the program into a freshly allocated
// buffer, padded with NOPs to the instruction cache alignment. An empty
// program emits nothing at all.
func (self *Program) Emit() []byte {
    n := self.Len()
    if n == 0 {
        return []byte{}
    }

    /* round up to the alignment */
    size := (n * WordSize + Alignment - 1) &^ (Alignment - 1)
    buf := dirtmake.Bytes(size, size)

    /* labels are only valid while this program is being packed */
    pc := int64(0)
    self.layout()
    defer self.unplace()

    /* pack every instruction */
    for _, bb := range self.Blocks {
        for i, ins := range bb.Instrs {
            flow := ins.Flow
            if shouldReturn(bb, i) {
                flow = FlowEnd
            }
            binary.LittleEndian.PutUint64(buf[pc * WordSize:], pack(ins, flow, branchOffset(ins, pc)))
            pc++
        }
    }

    /* fill the rest with NOPs */
    for p := int(pc) * WordSize; p < size; p += WordSize {
        binary.LittleEndian.PutUint64(buf[p:], _NopWord)
    }

    /* update the statistics */
    atomic.AddUint64(&WordsPacked, uint64(n))
    atomic.AddUint64(&ProgramsEmitted, 1)
    return buf
}
