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
    `math`
)

// AbsPos is an absolute code position: the owning block's depth-first number
// in the upper 16 bits, a slot within the block in the lower 16. Instructions
// take two slots each so that a definition at instruction i (slot 2i+1) orders
// after every use at the same instruction (slot 2i).
type AbsPos uint32

const (
    _P_entry = 0x0000           // live at block entry
    _P_exit  = 0xffff           // live at block exit
    _P_max   = math.MaxUint32
)

func mkpos(dfn int, slot int) AbsPos {
    return AbsPos(dfn) << 16 | AbsPos(slot)
}

func (self AbsPos) Dfn() int {
    return int(self >> 16)
}

func (self AbsPos) Slot() int {
    return int(self & 0xffff)
}

func (self AbsPos) String() string {
    switch self.Slot() {
        case _P_entry : return fmt.Sprintf("bb_%d.entry", self.Dfn())
        case _P_exit  : return fmt.Sprintf("bb_%d.exit", self.Dfn())
        default       : return fmt.Sprintf("bb_%d.ins[%d].%d", self.Dfn(), self.Slot() / 2, self.Slot() % 2)
    }
}

// LiveRange is the tightest absolute position interval covering every
// recorded use and definition of a variable. It starts empty ({MAX, 0}) and
// is only ever widened.
type LiveRange struct {
    FirstUse AbsPos
    LastUse  AbsPos
}

func (self *LiveRange) record(p AbsPos) {
    if self.FirstUse > p {
        self.FirstUse = p
    }
    if self.LastUse < p {
        self.LastUse = p
    }
}

func (self *LiveRange) Contains(p AbsPos) bool {
    return self.FirstUse <= p && p <= self.LastUse
}

func (self LiveRange) String() string {
    if self.FirstUse > self.LastUse {
        return "(empty)"
    } else {
        return fmt.Sprintf("[%s, %s]", self.FirstUse, self.LastUse)
    }
}
