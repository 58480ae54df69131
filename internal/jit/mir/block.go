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
)

// RegionKind classifies a block's position relative to exception regions.
type RegionKind uint8

const (
    RegionNone    RegionKind = iota     // not inside any exception region
    RegionTry                           // inside a try body
    RegionHandler                       // inside a handler, filter or finally
)

func (self RegionKind) String() string {
    switch self {
        case RegionNone    : return "none"
        case RegionTry     : return "try"
        case RegionHandler : return "handler"
        default            : return fmt.Sprintf("RegionKind(%d)", uint8(self))
    }
}

// BasicBlock is an ordered instruction sequence with explicit predecessor and
// successor edges. The depth-first number and loop nesting depth are assigned
// by earlier passes; the four liveness bit sets belong to the liveness pass.
type BasicBlock struct {
    Id      int
    Dfn     int
    Nesting int
    Region  RegionKind
    Ins     []Ins
    Pred    []*BasicBlock
    Succ    []*BasicBlock
    Gen     *BitSet
    Kill    *BitSet
    LiveIn  *BitSet
    LiveOut *BitSet
}

func (self *BasicBlock) String() string {
    return fmt.Sprintf("bb_%d", self.Id)
}

func (self *BasicBlock) entryPos() AbsPos {
    return mkpos(self.Dfn, _P_entry)
}

func (self *BasicBlock) exitPos() AbsPos {
    return mkpos(self.Dfn, _P_exit)
}

func linkBlocks(from *BasicBlock, to *BasicBlock) {
    from.Succ = append(from.Succ, to)
    to.Pred = append(to.Pred, from)
}
