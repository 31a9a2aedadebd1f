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

type bitset []uint64

func newBitset(n int) bitset {
    return make(bitset, (n + 63) / 64)
}

// set marks bit i and reports whether it was clear before.
func (self bitset) set(i int) bool {
    x, y := i / 64, uint(i % 64)
    old := self[x]
    self[x] |= 1 << y
    return old & (1 << y) == 0
}

func (self bitset) test(i int) bool {
    x, y := i / 64, uint(i % 64)
    return self[x] & (1 << y) != 0
}
