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
    `fmt`
    `strings`
)

// IndexKind is the kind of an instruction operand.
type IndexKind uint8

const (
    IndexNull IndexKind = iota
    IndexRegister
    IndexUniform
    IndexImmediate
    IndexSpecial
)

const (
    MaxRegisters  = 64
    MaxUniforms   = 128
    MaxImmediates = 16
    MaxSpecials   = 16
)

// Swizzle selects 16-bit halves of a 32-bit operand, H01 is the identity.
type Swizzle uint8

const (
    H01 Swizzle = iota
    H00
    H10
    H11
)

var _SwizzleNames = [...]string {
    H01 : "",
    H00 : ".h00",
    H10 : ".h10",
    H11 : ".h11",
}

func (self Swizzle) String() string {
    if int(self) < len(_SwizzleNames) {
        return _SwizzleNames[self]
    } else {
        return fmt.Sprintf(".swizzle(%d)", self)
    }
}

// Special is a fast-access value that is neither a uniform nor a constant.
type Special uint8

const (
    SpecialBlendDescriptor0 Special = 0x00
    SpecialTLSPtr           Special = 0x01
    SpecialSampleMask       Special = 0x02
    SpecialWLSPtr           Special = 0x03
    SpecialAtestParam       Special = 0x05
    SpecialLaneID           Special = 0x07
    SpecialCoreID           Special = 0x08
    SpecialProgramCounter   Special = 0x0a
)

// Page returns the FAU page the special value lives in.
func (self Special) Page() uint8 {
    switch self {
        case SpecialTLSPtr, SpecialWLSPtr                         : return 1
        case SpecialLaneID, SpecialCoreID, SpecialProgramCounter  : return 3
        default                                                   : return 0
    }
}

// Index is a fully resolved operand: a physical register, a slot of the
// fast-access uniform (FAU) table, or null. Modifiers are carried with
// the operand, the opcode table decides which of them can be encoded.
type Index struct {
    Kind    IndexKind
    Value   uint32
    Offset  bool
    Discard bool
    Neg     bool
    Abs     bool
    Not     bool
    Swizzle Swizzle
}

func Null() Index {
    return Index{}
}

func Register(n uint32) Index {
    return Index { Kind: IndexRegister, Value: n }
}

// Uniform references a 64-bit uniform slot, hi selects the upper word.
func Uniform(slot uint32, hi bool) Index {
    return Index { Kind: IndexUniform, Value: slot, Offset: hi }
}

// Immediate references an entry of the constant table.
func Immediate(n uint32, hi bool) Index {
    return Index { Kind: IndexImmediate, Value: n, Offset: hi }
}

func SpecialValue(v Special, hi bool) Index {
    return Index { Kind: IndexSpecial, Value: uint32(v), Offset: hi }
}

// Zero is the first entry of the constant table, which always reads 0.
func Zero() Index {
    return Immediate(0, false)
}

func (self Index) Discarded() Index      { self.Discard = true; return self }
func (self Index) Negated() Index        { self.Neg = !self.Neg; return self }
func (self Index) Absolute() Index       { self.Abs, self.Neg = true, false; return self }
func (self Index) Inverted() Index       { self.Not = !self.Not; return self }
func (self Index) Swizzled(s Swizzle) Index { self.Swizzle = s; return self }

// Half replicates one 16-bit half of the operand.
func (self Index) Half(hi bool) Index {
    if hi {
        return self.Swizzled(H11)
    } else {
        return self.Swizzled(H00)
    }
}

func (self Index) IsNull() bool {
    return self.Kind == IndexNull
}

func (self Index) IsFAU() bool {
    return self.Kind == IndexUniform || self.Kind == IndexImmediate || self.Kind == IndexSpecial
}

// Page returns the FAU page the operand addresses.
func (self Index) Page() uint8 {
    switch self.Kind {
        case IndexUniform : return uint8(self.Value >> 5)
        case IndexSpecial : return Special(self.Value).Page()
        default           : return 0
    }
}

func (self Index) String() string {
    var sb strings.Builder
    var hi string

    /* the upper word of a 64-bit slot */
    if self.Offset {
        hi = ".w1"
    }

    /* operand body */
    switch self.Kind {
        case IndexNull      : sb.WriteString("_")
        case IndexRegister  : fmt.Fprintf(&sb, "r%d", self.Value)
        case IndexUniform   : fmt.Fprintf(&sb, "u%d%s", self.Value, hi)
        case IndexImmediate : fmt.Fprintf(&sb, "#%d%s", self.Value, hi)
        case IndexSpecial   : fmt.Fprintf(&sb, "s%d%s", self.Value, hi)
        default             : panic("valhall: invalid operand kind")
    }

    /* modifiers */
    body := sb.String() + self.Swizzle.String()
    if self.Abs { body = "|" + body + "|" }
    if self.Neg { body = "-" + body }
    if self.Not { body = "~" + body }
    if self.Discard { body = "^" + body }
    return body
}
