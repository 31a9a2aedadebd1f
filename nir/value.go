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
)

const (
    MaxComps = 16
)

// Value is an SSA definition. It is defined by exactly one instruction and
// never changes after that, only the set of its uses does.
type Value struct {
    Index  int
    Comps  uint8
    Def    Instr
    uses   []*Src
    ifuses []*Src
}

func (self *Value) String() string {
    return fmt.Sprintf("%%%d", self.Index)
}

// Uses returns the ordinary (instruction operand) uses of the value. The
// returned slice is a snapshot and is safe to iterate while rewriting.
func (self *Value) Uses() []*Src {
    return append([]*Src(nil), self.uses...)
}

// IfUses returns the uses of the value as an if condition.
func (self *Value) IfUses() []*Src {
    return append([]*Src(nil), self.ifuses...)
}

func (self *Value) NumUses() int {
    return len(self.uses)
}

func (self *Value) NumIfUses() int {
    return len(self.ifuses)
}

// Unused reports whether nothing refers to the value anymore.
func (self *Value) Unused() bool {
    return len(self.uses) == 0 && len(self.ifuses) == 0
}

func (self *Value) link(src *Src) {
    if src.ParentIf != nil {
        src.slot = len(self.ifuses)
        self.ifuses = append(self.ifuses, src)
    } else {
        src.slot = len(self.uses)
        self.uses = append(self.uses, src)
    }
}

func (self *Value) unlink(src *Src) {
    if src.ParentIf != nil {
        self.ifuses = unlinkUse(self.ifuses, src)
    } else {
        self.uses = unlinkUse(self.uses, src)
    }
}

func unlinkUse(list []*Src, src *Src) []*Src {
    n := len(list) - 1
    i := src.slot

    /* the handle must point at itself */
    if i < 0 || i > n || list[i] != src {
        panic("nir: use-list corrupted: " + src.String())
    }

    /* swap with the last one */
    list[i] = list[n]
    list[i].slot = i
    list[n] = nil
    src.slot = -1
    return list[:n]
}

// Src is a use of a Value by an instruction operand or by an if condition.
type Src struct {
    Value    *Value
    Parent   Instr
    ParentIf *If
    Swizzle  [MaxComps]uint8
    Abs      bool
    Negate   bool
    slot     int
}

func newSrc(parent Instr, v *Value) *Src {
    src := &Src {
        Value  : v,
        Parent : parent,
        slot   : -1,
    }

    /* identity swizzle */
    for i := range src.Swizzle {
        src.Swizzle[i] = uint8(i)
    }

    /* register the use */
    v.link(src)
    return src
}

// Rewrite points the use at v. It is the only way a use changes its source.
func (self *Src) Rewrite(v *Value) {
    if self.Value != nil {
        self.Value.unlink(self)
    }

    /* link with the new value */
    self.Value = v
    v.link(self)
}

// Linked reports whether the use is still present in its value's use-list.
func (self *Src) Linked() bool {
    return self.slot >= 0
}

func (self *Src) drop() {
    if self.slot >= 0 {
        self.Value.unlink(self)
    }
}

// Reads returns the number of lanes the use consumes.
func (self *Src) Reads() int {
    if alu, ok := self.Parent.(*AluInstr); ok {
        for i, s := range alu.Src {
            if s == self {
                return alu.SrcComponents(i)
            }
        }
    }
    return int(self.Value.Comps)
}

func (self *Src) String() string {
    var sb strings.Builder

    /* dangling use, nothing to print */
    if self.Value == nil {
        return "<nil>"
    }

    /* lanes actually read */
    nb := self.Reads()

    /* negate & absolute value */
    if self.Negate { sb.WriteByte('-') }
    if self.Abs    { sb.WriteByte('|') }

    /* the value itself */
    sb.WriteString(self.Value.String())

    /* only print non-trivial swizzles */
    if !self.identity(nb) || nb != int(self.Value.Comps) {
        sb.WriteByte('.')
        for i := 0; i < nb; i++ {
            sb.WriteByte(swizzleName(self.Swizzle[i]))
        }
    }

    /* close the absolute value */
    if self.Abs {
        sb.WriteByte('|')
    }
    return sb.String()
}

func (self *Src) identity(nb int) bool {
    for i := 0; i < nb; i++ {
        if self.Swizzle[i] != uint8(i) {
            return false
        }
    }
    return true
}

func swizzleName(c uint8) byte {
    return "xyzwefghijklmnop"[c & (MaxComps - 1)]
}
