/*
 * Copyright 2022 CloudWeGo Authors
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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/nirgo/nir"
	"github.com/cloudwego/nirgo/valhall"
)

// A Stats records statistics about the compiler.
type Stats struct {
	Optimizer OptimizerStats
	Packer    PackerStats
}

// An OptimizerStats records what the optimization passes did.
type OptimizerStats struct {
	CopiesFolded       int
	CopiesRemoved      int
	InstrsEliminated   int
	LoopFixpointRounds int
}

// A PackerStats records the output of the instruction packer.
type PackerStats struct {
	Words    int
	Programs int
}

// GetStats returns statistics of the compiler.
func GetStats() Stats {
	return Stats{
		Optimizer: OptimizerStats{
			CopiesFolded:       int(atomic.LoadUint64(&nir.CopiesFolded)),
			CopiesRemoved:      int(atomic.LoadUint64(&nir.CopiesRemoved)),
			InstrsEliminated:   int(atomic.LoadUint64(&nir.InstrsEliminated)),
			LoopFixpointRounds: int(atomic.LoadUint64(&nir.LoopFixpointRounds)),
		},
		Packer: PackerStats{
			Words:    int(atomic.LoadUint64(&valhall.WordsPacked)),
			Programs: int(atomic.LoadUint64(&valhall.ProgramsEmitted)),
		},
	}
}
