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

package mir

import (
    `fmt`
    `math/bits`
    `strconv`
    `strings`
)

const (
    _W_bits = 64
)

func nwords(n int) int {
    return (n + _W_bits - 1) / _W_bits
}

// BitSet is a fixed-width bit vector indexed by variable id. All sets used
// within one analysis run share the same width, and their backing words are
// carved from one contiguous arena region.
type BitSet struct {
    n int
    w []uint64
}

func newBitSet(n int) *BitSet {
    return &BitSet {
        n: n,
        w: make([]uint64, nwords(n)),
    }
}

func newBitSetPool(mp *MemPool, n int) *BitSet {
    return &BitSet {
        n: n,
        w: mp.alloc(nwords(n)),
    }
}

func (self *BitSet) check(i int) {
    if i < 0 || i >= self.n {
        panic(fmt.Sprintf("bitset: bit %d out of range [0, %d)", i, self.n))
    }
}

func (self *BitSet) match(bs *BitSet) {
    if self.n != bs.n {
        panic(fmt.Sprintf("bitset: width mismatch: %d != %d", self.n, bs.n))
    }
}

func (self *BitSet) Test(i int) bool {
    self.check(i)
    return self.w[i / _W_bits] & (1 << (i % _W_bits)) != 0
}

func (self *BitSet) Set(i int) {
    self.check(i)
    self.w[i / _W_bits] |= 1 << (i % _W_bits)
}

func (self *BitSet) Union(bs *BitSet) {
    self.match(bs)
    for i, v := range bs.w {
        self.w[i] |= v
    }
}

func (self *BitSet) Sub(bs *BitSet) {
    self.match(bs)
    for i, v := range bs.w {
        self.w[i] &^= v
    }
}

func (self *BitSet) CopyFrom(bs *BitSet) {
    self.match(bs)
    copy(self.w, bs.w)
}

func (self *BitSet) Equal(bs *BitSet) bool {
    self.match(bs)
    for i, v := range bs.w {
        if self.w[i] != v {
            return false
        }
    }
    return true
}

func (self *BitSet) Empty() bool {
    for _, v := range self.w {
        if v != 0 {
            return false
        }
    }
    return true
}

// ForEach visits every set bit in ascending order.
func (self *BitSet) ForEach(fn func(i int)) {
    for i, v := range self.w {
        for j := i * _W_bits; v != 0; j++ {
            n := bits.TrailingZeros64(v)
            j += n
            v >>= uint(n) + 1
            fn(j)
        }
    }
}

func (self *BitSet) String() string {
    nb := make([]string, 0, self.n)
    self.ForEach(func(i int) { nb = append(nb, strconv.Itoa(i)) })
    return "{" + strings.Join(nb, ", ") + "}"
}
