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
    `testing`

    `github.com/stretchr/testify/require`
)

func TestMemPool_Alloc(t *testing.T) {
    mp := newMemPool(0)
    p := mp.alloc(16)
    require.Equal(t, 16, len(p))
    require.Equal(t, 16, cap(p))
    for _, w := range p {
        require.Zero(t, w)
    }
    q := mp.allocNoInit(8)
    require.Equal(t, 8, len(q))
    require.Panics(t, func() { mp.alloc(0) })
}

func TestMemPool_Grow(t *testing.T) {
    mp := newMemPool(0)
    base := mp.Reserved()
    mp.alloc(base - 8)

    /* exceeding the current chunk must start a new one */
    p := mp.alloc(_M_chunk * 2)
    require.Equal(t, _M_chunk * 2, len(p))
    require.Equal(t, base + _M_chunk * 2, mp.Reserved())

    /* the old chunk is retired, not reused */
    mp.alloc(64)
    require.Equal(t, base + _M_chunk * 3, mp.Reserved())
}
