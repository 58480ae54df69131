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

// VarFlags are facts accumulated about a variable across passes. Flags are
// OR-ed in and never cleared within one compilation.
type VarFlags uint8

const (
    V_arg      VarFlags = 1 << iota     // incoming argument, value exists from method entry
    V_volatile                          // excluded from register allocation
    V_indirect                          // address taken, set by earlier passes, read-only here
)

// Var is one tracked local or temporary of the method being compiled.
type Var struct {
    Idx       int
    Flags     VarFlags
    Range     LiveRange
    SpillCost uint32
}

const (
    compLiveness = 1 << iota    // liveness analysis has run on this CFG
)

// CFG is the per-method compilation context seen by the liveness pass: the
// block list in depth-first-number order, the dense variable table, and the
// arena every liveness bit set is carved from. The optional aliasing
// collaborator resolves indirect accesses to affected variable sets.
type CFG struct {
    Entry    *BasicBlock
    Blocks   []*BasicBlock
    Vars     []Var
    RetVar   int
    Aliasing AliasInfo
    Pool     *MemPool
    compDone uint32
}

func newCFG(nvars int, blocks ...*BasicBlock) *CFG {
    vars := make([]Var, nvars)
    for i := range vars {
        vars[i].Idx = i
    }
    return &CFG {
        Vars:   vars,
        Blocks: blocks,
        RetVar: NoVar,
        Pool:   newMemPool(4 * len(blocks) * nwords(nvars)),
    }
}

func (self *CFG) VarOf(idx int) *Var {
    if idx < 0 || idx >= len(self.Vars) {
        panic(fmt.Sprintf("mir: variable index out of range: %d", idx))
    } else {
        return &self.Vars[idx]
    }
}

// initBlock locates the blanket zero-initialization block, which sits
// immediately after the method entry block.
/* affectedVars resolves the variables touched through an indirect access,
 * either by asking the aliasing collaborator or by falling back to the one
 * exact address variable */
func (self *CFG) affectedVars(ins *Ins) []int {
    if self.Aliasing != nil {
        return self.Aliasing.AffectedVars(ins)
    } else if ins.Addr != NoVar {
        return []int { ins.Addr }
    } else {
        return nil
    }
}

func (self *CFG) initBlock() *BasicBlock {
    for i, bb := range self.Blocks {
        if bb == self.Entry && i + 1 < len(self.Blocks) {
            return self.Blocks[i + 1]
        }
    }
    return nil
}
