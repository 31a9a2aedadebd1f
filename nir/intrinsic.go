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

type Intrinsic uint16

const (
    IntrinsicLoadInput Intrinsic = iota
    IntrinsicLoadUniform
    IntrinsicLoadUBO
    IntrinsicLoadSSBO
    IntrinsicLoadShared
    IntrinsicStoreOutput
    IntrinsicStoreSSBO
    IntrinsicStoreShared
    IntrinsicDiscard
    IntrinsicDiscardIf
    IntrinsicBarrier
    IntrinsicLoadFragCoord
    IntrinsicLoadInstanceID
    intrinsicCount
)

// IntrinsicInfo describes an intrinsic. Intrinsics that are not CanEliminate
// have side effects and are always kept.
type IntrinsicInfo struct {
    Name         string
    NumSrcs      int
    HasDest      bool
    CanEliminate bool
}

var IntrinsicInfos = [intrinsicCount]IntrinsicInfo {
    IntrinsicLoadInput      : { Name: "load_input"      , NumSrcs: 1, HasDest: true , CanEliminate: true  },
    IntrinsicLoadUniform    : { Name: "load_uniform"    , NumSrcs: 1, HasDest: true , CanEliminate: true  },
    IntrinsicLoadUBO        : { Name: "load_ubo"        , NumSrcs: 2, HasDest: true , CanEliminate: true  },
    IntrinsicLoadSSBO       : { Name: "load_ssbo"       , NumSrcs: 2, HasDest: true , CanEliminate: false },
    IntrinsicLoadShared     : { Name: "load_shared"     , NumSrcs: 1, HasDest: true , CanEliminate: false },
    IntrinsicStoreOutput    : { Name: "store_output"    , NumSrcs: 1, HasDest: false, CanEliminate: false },
    IntrinsicStoreSSBO      : { Name: "store_ssbo"      , NumSrcs: 3, HasDest: false, CanEliminate: false },
    IntrinsicStoreShared    : { Name: "store_shared"    , NumSrcs: 2, HasDest: false, CanEliminate: false },
    IntrinsicDiscard        : { Name: "discard"         , NumSrcs: 0, HasDest: false, CanEliminate: false },
    IntrinsicDiscardIf      : { Name: "discard_if"      , NumSrcs: 1, HasDest: false, CanEliminate: false },
    IntrinsicBarrier        : { Name: "barrier"         , NumSrcs: 0, HasDest: false, CanEliminate: false },
    IntrinsicLoadFragCoord  : { Name: "load_frag_coord" , NumSrcs: 0, HasDest: true , CanEliminate: true  },
    IntrinsicLoadInstanceID : { Name: "load_instance_id", NumSrcs: 0, HasDest: true , CanEliminate: true  },
}

func (self Intrinsic) String() string {
    if self >= intrinsicCount {
        panic("nir: invalid intrinsic")
    } else {
        return IntrinsicInfos[self].Name
    }
}

type TexOp uint8

const (
    TexSample TexOp = iota
    TexSampleLod
    TexFetch
    TexSize
)

func (self TexOp) String() string {
    switch self {
        case TexSample    : return "tex"
        case TexSampleLod : return "txl"
        case TexFetch     : return "txf"
        case TexSize      : return "txs"
        default           : panic("unreachable")
    }
}
