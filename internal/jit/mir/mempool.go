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
    `unsafe`

    `github.com/bytedance/gopkg/lang/dirtmake`
)

const (
    _M_chunk = 4096     // default chunk size, in words
)

// MemPool is a bump-pointer arena scoped to the compilation of one method.
// Allocations are carved from large chunks and are never freed individually,
// the whole pool is discarded at the end of the compilation.
type MemPool struct {
    used int
    cur  []uint64
    full [][]uint64
}

func newMemPool(hint int) *MemPool {
    if hint < _M_chunk {
        hint = _M_chunk
    }
    return &MemPool {
        cur: newChunk(hint),
    }
}

func newChunk(nw int) []uint64 {
    buf := dirtmake.Bytes(nw * 8, nw * 8)
    return unsafe.Slice((*uint64)(unsafe.Pointer(&buf[0])), nw)
}

func (self *MemPool) grow(nw int) {
    self.full = append(self.full, self.cur)
    self.used = 0

    /* chunks are never smaller than the default size */
    if nw < _M_chunk {
        self.cur = newChunk(_M_chunk)
    } else {
        self.cur = newChunk(nw)
    }
}

/* allocNoInit carves nw words without zeroing them */
func (self *MemPool) allocNoInit(nw int) []uint64 {
    if nw <= 0 {
        panic("mempool: zero-sized allocation")
    }

    /* bump into a fresh chunk if the current one is exhausted */
    if self.used + nw > len(self.cur) {
        self.grow(nw)
    }

    /* carve from the current chunk */
    p := self.cur[self.used : self.used + nw : self.used + nw]
    self.used += nw
    return p
}

/* alloc carves nw zero-initialized words */
func (self *MemPool) alloc(nw int) []uint64 {
    p := self.allocNoInit(nw)
    for i := range p {
        p[i] = 0
    }
    return p
}

// Reserved reports the total number of words owned by the pool.
func (self *MemPool) Reserved() int {
    nw := len(self.cur)
    for _, c := range self.full {
        nw += len(c)
    }
    return nw
}
