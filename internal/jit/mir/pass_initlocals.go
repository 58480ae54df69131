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

// InitLocals strips the provably dead parts of the blanket locals
// zero-initialization block using the computed live-out set. It is a
// conservative single-block peephole: eliminated stores become no-ops, but
// the affected variable's recorded live range is deliberately left as-is,
// there is not enough information here to narrow it safely.
type InitLocals struct{}

func (self InitLocals) Apply(cfg *CFG) {
    bb := cfg.initBlock()
    if bb == nil || bb.LiveOut == nil {
        return
    }

    /* the collaborator tracks traversal position */
    if cfg.Aliasing != nil {
        cfg.Aliasing.BeginBlock(bb)
    }

    /* record everything this block reads, plus the targets of genuine
     * memory stores and everything reachable through an indirect access */
    used := newBitSet(len(cfg.Vars))
    for i := range bb.Ins {
        ins := &bb.Ins[i]
        spec := specof(ins.Op)
        if spec.Src1 == S_var {
            used.Set(ins.Src1)
        }
        if spec.Src2 == S_var {
            used.Set(ins.Src2)
        }
        if spec.MemStore {
            used.Set(ins.Dst)
        }
        if spec.Indirect {
            for _, idx := range cfg.affectedVars(ins) {
                used.Set(idx)
            }
        }
    }

    /* nullify constant loads whose destination is not read in this block,
     * not live on exit, and safe to drop */
    for i := range bb.Ins {
        ins := &bb.Ins[i]
        spec := specof(ins.Op)

        if spec.Dst != S_var || spec.MemStore || spec.Indirect || !spec.Const {
            continue
        }
        if used.Test(ins.Dst) || bb.LiveOut.Test(ins.Dst) {
            continue
        }
        if ins.Dst == cfg.RetVar {
            continue
        }
        if cfg.VarOf(ins.Dst).Flags & (V_volatile | V_indirect) != 0 {
            continue
        }

        vv := cfg.VarOf(ins.Dst)
        ins.nullify()
        vv.SpillCost -= 1
    }
}
