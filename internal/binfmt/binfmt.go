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

// Package binfmt is the envelope compiled shaders are stored in, it is a
// Thrift struct encoded with the Binary Protocol.
package binfmt

import (
    `github.com/apache/thrift/lib/go/thrift`
    `github.com/bytedance/gopkg/lang/dirtmake`
    `github.com/cloudwego/kitex/pkg/protocol/bthrift`
    `github.com/nikandfor/errors`

    `github.com/cloudwego/nirgo/internal/utils`
)

const (
    _StructName = "ShaderBinary"
)

const (
    FieldName         int16 = 1
    FieldStage        int16 = 2
    FieldCode         int16 = 3
    FieldInstructions int16 = 4
    FieldWords        int16 = 5
    FieldOptimized    int16 = 6
)

// ShaderBinary is
//
//     struct ShaderBinary {
//         1: string name
//         2: i32    stage
//         3: required binary code
//         4: i32    instructions
//         5: i32    words
//         6: bool   optimized
//     }
type ShaderBinary struct {
    Name         string
    Stage        int32
    Code         []byte
    Instructions int32
    Words        int32
    Optimized    bool
}

func (self *ShaderBinary) BLength() int {
    l := bthrift.Binary.StructBeginLength(_StructName)
    l += bthrift.Binary.FieldBeginLength("name", thrift.STRING, FieldName)
    l += bthrift.Binary.StringLength(self.Name)
    l += bthrift.Binary.FieldEndLength()
    l += bthrift.Binary.FieldBeginLength("stage", thrift.I32, FieldStage)
    l += bthrift.Binary.I32Length(self.Stage)
    l += bthrift.Binary.FieldEndLength()
    l += bthrift.Binary.FieldBeginLength("code", thrift.STRING, FieldCode)
    l += bthrift.Binary.BinaryLength(self.Code)
    l += bthrift.Binary.FieldEndLength()
    l += bthrift.Binary.FieldBeginLength("instructions", thrift.I32, FieldInstructions)
    l += bthrift.Binary.I32Length(self.Instructions)
    l += bthrift.Binary.FieldEndLength()
    l += bthrift.Binary.FieldBeginLength("words", thrift.I32, FieldWords)
    l += bthrift.Binary.I32Length(self.Words)
    l += bthrift.Binary.FieldEndLength()
    l += bthrift.Binary.FieldBeginLength("optimized", thrift.BOOL, FieldOptimized)
    l += bthrift.Binary.BoolLength(self.Optimized)
    l += bthrift.Binary.FieldEndLength()
    l += bthrift.Binary.FieldStopLength()
    l += bthrift.Binary.StructEndLength()
    return l
}

// FastWrite serializes the struct into buf, which must be at least
// BLength() bytes long, and returns the number of bytes written.
func (self *ShaderBinary) FastWrite(buf []byte) int {
    p := bthrift.Binary.WriteStructBegin(buf, _StructName)
    p += bthrift.Binary.WriteFieldBegin(buf[p:], "name", thrift.STRING, FieldName)
    p += bthrift.Binary.WriteString(buf[p:], self.Name)
    p += bthrift.Binary.WriteFieldEnd(buf[p:])
    p += bthrift.Binary.WriteFieldBegin(buf[p:], "stage", thrift.I32, FieldStage)
    p += bthrift.Binary.WriteI32(buf[p:], self.Stage)
    p += bthrift.Binary.WriteFieldEnd(buf[p:])
    p += bthrift.Binary.WriteFieldBegin(buf[p:], "code", thrift.STRING, FieldCode)
    p += bthrift.Binary.WriteBinary(buf[p:], self.Code)
    p += bthrift.Binary.WriteFieldEnd(buf[p:])
    p += bthrift.Binary.WriteFieldBegin(buf[p:], "instructions", thrift.I32, FieldInstructions)
    p += bthrift.Binary.WriteI32(buf[p:], self.Instructions)
    p += bthrift.Binary.WriteFieldEnd(buf[p:])
    p += bthrift.Binary.WriteFieldBegin(buf[p:], "words", thrift.I32, FieldWords)
    p += bthrift.Binary.WriteI32(buf[p:], self.Words)
    p += bthrift.Binary.WriteFieldEnd(buf[p:])
    p += bthrift.Binary.WriteFieldBegin(buf[p:], "optimized", thrift.BOOL, FieldOptimized)
    p += bthrift.Binary.WriteBool(buf[p:], self.Optimized)
    p += bthrift.Binary.WriteFieldEnd(buf[p:])
    p += bthrift.Binary.WriteFieldStop(buf[p:])
    p += bthrift.Binary.WriteStructEnd(buf[p:])
    return p
}

// Encode serializes v into a new buffer.
func Encode(v *ShaderBinary) []byte {
    n := v.BLength()
    buf := dirtmake.Bytes(n, n)
    return buf[:v.FastWrite(buf)]
}

type reader struct {
    mm *thrift.TMemoryBuffer
    pr *thrift.TBinaryProtocol
    nb int
}

func newReader(buf []byte) *reader {
    mm := thrift.NewTMemoryBuffer()
    mm.Buffer.Write(buf)
    return &reader {
        mm: mm,
        nb: len(buf),
        pr: thrift.NewTBinaryProtocolTransport(mm),
    }
}

func (self *reader) pos() int {
    return self.nb - self.mm.Len()
}

func (self *reader) fail(err error, what string) error {
    return errors.Wrap(utils.EFormat(self.pos(), err.Error()), "read %s", what)
}

func (self *reader) expect(id int16, want thrift.TType, got thrift.TType) error {
    if want == got {
        return nil
    } else {
        return utils.EFieldType(self.pos(), id, want.String(), got.String())
    }
}

// Decode deserializes a ShaderBinary from buf. Unknown fields are skipped.
func Decode(buf []byte) (*ShaderBinary, error) {
    var err error
    var code bool

    /* struct header */
    ret := new(ShaderBinary)
    rd := newReader(buf)
    if _, err = rd.pr.ReadStructBegin(); err != nil {
        return nil, rd.fail(err, "struct begin")
    }

    /* read every field */
    for {
        _, tt, id, err := rd.pr.ReadFieldBegin()
        if err != nil {
            return nil, rd.fail(err, "field header")
        } else if tt == thrift.STOP {
            break
        }

        /* check the type of known fields, skip the rest */
        switch id {
            case FieldName         : err = rd.expect(id, thrift.STRING, tt)
            case FieldStage        : err = rd.expect(id, thrift.I32, tt)
            case FieldCode         : err = rd.expect(id, thrift.STRING, tt)
            case FieldInstructions : err = rd.expect(id, thrift.I32, tt)
            case FieldWords        : err = rd.expect(id, thrift.I32, tt)
            case FieldOptimized    : err = rd.expect(id, thrift.BOOL, tt)
            default                : err = rd.pr.Skip(tt)
        }

        /* type mismatch or bad unknown field */
        if err != nil {
            if _, ok := err.(*utils.FormatError); ok {
                return nil, err
            } else {
                return nil, rd.fail(err, "unknown field")
            }
        }

        /* field values */
        switch id {
            case FieldName         : ret.Name, err = rd.pr.ReadString()
            case FieldStage        : ret.Stage, err = rd.pr.ReadI32()
            case FieldCode         : ret.Code, err = rd.pr.ReadBinary(); code = true
            case FieldInstructions : ret.Instructions, err = rd.pr.ReadI32()
            case FieldWords        : ret.Words, err = rd.pr.ReadI32()
            case FieldOptimized    : ret.Optimized, err = rd.pr.ReadBool()
        }

        /* value or trailer */
        if err != nil {
            return nil, rd.fail(err, "field value")
        } else if err = rd.pr.ReadFieldEnd(); err != nil {
            return nil, rd.fail(err, "field end")
        }
    }

    /* struct trailer */
    if err = rd.pr.ReadStructEnd(); err != nil {
        return nil, rd.fail(err, "struct end")
    }

    /* the code is required */
    if !code {
        return nil, utils.EMissing(rd.pos(), "code")
    } else {
        return ret, nil
    }
}
