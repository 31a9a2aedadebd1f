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

type InstrType uint8

const (
    InstrAlu InstrType = iota
    InstrIntrinsic
    InstrTex
    InstrJump
    InstrCall
    InstrPhi
    InstrLoadConst
    InstrUndef
    InstrParallelCopy
)

func (self InstrType) String() string {
    switch self {
        case InstrAlu          : return "alu"
        case InstrIntrinsic    : return "intrinsic"
        case InstrTex          : return "tex"
        case InstrJump         : return "jump"
        case InstrCall         : return "call"
        case InstrPhi          : return "phi"
        case InstrLoadConst    : return "load_const"
        case InstrUndef        : return "undef"
        case InstrParallelCopy : return "parallel_copy"
        default                : panic("unreachable")
    }
}

// Instr is one of the instruction kinds below. The set is closed, every pass
// switches over all of them.
type Instr interface {
    fmt.Stringer
    Type() InstrType
    Block() *Block
    Sources() []*Src
    Definitions() []*Value
    Indirect() *Src
    base() *instrBase
}

type instrBase struct {
    block    *Block
    index    int
    live     bool
    indirect *Src
}

func (self *instrBase) base() *instrBase { return self }
func (self *instrBase) Block() *Block    { return self.block }
func (self *instrBase) Indirect() *Src   { return self.indirect }

// Index returns the position of the instruction inside the function, valid
// while MetadataInstrIndex is preserved.
func (self *instrBase) Index() int {
    return self.index
}

// SetIndirect attaches an indirect addressing source to the instruction. It is
// kept alive together with the instruction.
func SetIndirect(ins Instr, v *Value) {
    p := ins.base()
    if p.indirect != nil {
        p.indirect.Rewrite(v)
    } else {
        p.indirect = newSrc(ins, v)
    }
}

type AluInstr struct {
    instrBase
    Op       AluOp
    Dest     *Value
    Saturate bool
    Src      []*Src
}

func (*AluInstr) Type() InstrType { return InstrAlu }

func (self *AluInstr) Sources() []*Src {
    return withIndirect(self.Src, self.indirect)
}

func (self *AluInstr) Definitions() []*Value {
    return []*Value { self.Dest }
}

// SrcComponents returns the number of lanes source i reads.
func (self *AluInstr) SrcComponents(i int) int {
    if n := AluOpInfos[self.Op].Inputs[i]; n != 0 {
        return int(n)
    } else {
        return int(self.Dest.Comps)
    }
}

func (self *AluInstr) String() string {
    sat := ""
    src := make([]string, len(self.Src))

    /* saturate modifier */
    if self.Saturate {
        sat = ".sat"
    }

    /* dump each source */
    for i, s := range self.Src {
        src[i] = s.String()
    }

    /* join them together */
    return fmt.Sprintf(
        "%s = %s%s %s",
        self.Dest,
        self.Op,
        sat,
        strings.Join(src, ", "),
    )
}

type IntrinsicInstr struct {
    instrBase
    Op   Intrinsic
    Dest *Value
    Src  []*Src
    Base int
}

func (*IntrinsicInstr) Type() InstrType { return InstrIntrinsic }

func (self *IntrinsicInstr) Sources() []*Src {
    return withIndirect(self.Src, self.indirect)
}

func (self *IntrinsicInstr) Definitions() []*Value {
    if self.Dest == nil {
        return nil
    } else {
        return []*Value { self.Dest }
    }
}

func (self *IntrinsicInstr) String() string {
    src := make([]string, len(self.Src))
    for i, s := range self.Src { src[i] = s.String() }

    /* intrinsics without results */
    if self.Dest == nil {
        return fmt.Sprintf("@%s(%s) (base=%d)", self.Op, strings.Join(src, ", "), self.Base)
    } else {
        return fmt.Sprintf("%s = @%s(%s) (base=%d)", self.Dest, self.Op, strings.Join(src, ", "), self.Base)
    }
}

type TexSrcKind uint8

const (
    TexSrcCoord TexSrcKind = iota
    TexSrcLod
    TexSrcBias
    TexSrcOffset
    TexSrcComparator
)

var _TexSrcNames = [...]string {
    TexSrcCoord      : "coord",
    TexSrcLod        : "lod",
    TexSrcBias       : "bias",
    TexSrcOffset     : "offset",
    TexSrcComparator : "comparator",
}

type TexSrc struct {
    *Src
    Kind TexSrcKind
}

type TexInstr struct {
    instrBase
    Op      TexOp
    Dest    *Value
    Src     []TexSrc
    Texture int
    Sampler int
}

func (*TexInstr) Type() InstrType { return InstrTex }

func (self *TexInstr) Sources() []*Src {
    ret := make([]*Src, 0, len(self.Src) + 1)
    for _, s := range self.Src { ret = append(ret, s.Src) }
    return withIndirect(ret, self.indirect)
}

func (self *TexInstr) Definitions() []*Value {
    return []*Value { self.Dest }
}

func (self *TexInstr) String() string {
    src := make([]string, len(self.Src))
    for i, s := range self.Src { src[i] = fmt.Sprintf("%s(%s)", _TexSrcNames[s.Kind], s.Src) }
    return fmt.Sprintf("%s = %s %s, texture=%d, sampler=%d", self.Dest, self.Op, strings.Join(src, ", "), self.Texture, self.Sampler)
}

type JumpType uint8

const (
    JumpBreak JumpType = iota
    JumpContinue
    JumpReturn
)

type JumpInstr struct {
    instrBase
    Kind JumpType
}

func (*JumpInstr) Type() InstrType        { return InstrJump }
func (*JumpInstr) Sources() []*Src        { return nil }
func (*JumpInstr) Definitions() []*Value  { return nil }

func (self *JumpInstr) String() string {
    switch self.Kind {
        case JumpBreak    : return "break"
        case JumpContinue : return "continue"
        case JumpReturn   : return "return"
        default           : panic("unreachable")
    }
}

type CallInstr struct {
    instrBase
    Callee string
    Params []*Src
}

func (*CallInstr) Type() InstrType       { return InstrCall }
func (*CallInstr) Definitions() []*Value { return nil }

func (self *CallInstr) Sources() []*Src {
    return withIndirect(self.Params, self.indirect)
}

func (self *CallInstr) String() string {
    src := make([]string, len(self.Params))
    for i, s := range self.Params { src[i] = s.String() }
    return fmt.Sprintf("call %s(%s)", self.Callee, strings.Join(src, ", "))
}

type PhiSrc struct {
    *Src
    Pred *Block
}

type PhiInstr struct {
    instrBase
    Dest *Value
    Src  []PhiSrc
}

func (*PhiInstr) Type() InstrType { return InstrPhi }

func (self *PhiInstr) Sources() []*Src {
    ret := make([]*Src, 0, len(self.Src) + 1)
    for _, s := range self.Src { ret = append(ret, s.Src) }
    return withIndirect(ret, self.indirect)
}

func (self *PhiInstr) Definitions() []*Value {
    return []*Value { self.Dest }
}

// AddSrc adds the incoming value from predecessor pred.
func (self *PhiInstr) AddSrc(pred *Block, v *Value) {
    self.Src = append(self.Src, PhiSrc {
        Src  : newSrc(self, v),
        Pred : pred,
    })
}

// SrcFor returns the incoming use from pred, or nil.
func (self *PhiInstr) SrcFor(pred *Block) *Src {
    for _, s := range self.Src {
        if s.Pred == pred {
            return s.Src
        }
    }
    return nil
}

func (self *PhiInstr) String() string {
    src := make([]string, len(self.Src))
    for i, s := range self.Src { src[i] = fmt.Sprintf("bb_%d: %s", s.Pred.Index, s.Src) }
    return fmt.Sprintf("%s = φ(%s)", self.Dest, strings.Join(src, ", "))
}

type LoadConstInstr struct {
    instrBase
    Dest   *Value
    Values []uint64
}

func (*LoadConstInstr) Type() InstrType { return InstrLoadConst }
func (*LoadConstInstr) Sources() []*Src { return nil }

func (self *LoadConstInstr) Definitions() []*Value {
    return []*Value { self.Dest }
}

func (self *LoadConstInstr) String() string {
    val := make([]string, len(self.Values))
    for i, v := range self.Values { val[i] = fmt.Sprintf("%#x", v) }
    return fmt.Sprintf("%s = load_const (%s)", self.Dest, strings.Join(val, ", "))
}

type UndefInstr struct {
    instrBase
    Dest *Value
}

func (*UndefInstr) Type() InstrType { return InstrUndef }
func (*UndefInstr) Sources() []*Src { return nil }

func (self *UndefInstr) Definitions() []*Value {
    return []*Value { self.Dest }
}

func (self *UndefInstr) String() string {
    return fmt.Sprintf("%s = undefined", self.Dest)
}

type ParallelCopyEntry struct {
    Dest *Value
    Src  *Src
}

// ParallelCopyInstr copies all of its entries at once, it is either kept or
// removed as a whole.
type ParallelCopyInstr struct {
    instrBase
    Entries []ParallelCopyEntry
}

func (*ParallelCopyInstr) Type() InstrType { return InstrParallelCopy }

func (self *ParallelCopyInstr) Sources() []*Src {
    ret := make([]*Src, 0, len(self.Entries) + 1)
    for _, e := range self.Entries { ret = append(ret, e.Src) }
    return withIndirect(ret, self.indirect)
}

func (self *ParallelCopyInstr) Definitions() []*Value {
    ret := make([]*Value, 0, len(self.Entries))
    for _, e := range self.Entries { ret = append(ret, e.Dest) }
    return ret
}

func (self *ParallelCopyInstr) String() string {
    dst := make([]string, len(self.Entries))
    src := make([]string, len(self.Entries))

    /* dump each entry */
    for i, e := range self.Entries {
        dst[i] = e.Dest.String()
        src[i] = e.Src.String()
    }

    /* join them together */
    return fmt.Sprintf(
        "%s = pcopy %s",
        strings.Join(dst, ", "),
        strings.Join(src, ", "),
    )
}

func withIndirect(src []*Src, ind *Src) []*Src {
    if ind == nil {
        return src
    } else {
        return append(append(make([]*Src, 0, len(src) + 1), src...), ind)
    }
}
