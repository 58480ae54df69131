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

    `github.com/davecgh/go-spew/spew`
    `github.com/oleiade/lane`
)

const debugLiveness = false

// Liveness computes, for every block, the gen / kill / live-in / live-out
// variable sets with a backward worklist fixpoint, tracks per-variable live
// ranges and spill costs, and marks every variable reachable from exception
// handler code as volatile. It must run exactly once per method.
type Liveness struct{}

func (self Liveness) costinc(bb *BasicBlock) uint32 {
    return 1 << (uint32(bb.Nesting) << 1)
}

func (self Liveness) trackUse(cfg *CFG, bb *BasicBlock, idx int, p AbsPos) {
    vv := cfg.VarOf(idx)

    /* variables touched inside handler regions cannot live in registers,
     * the runtime does not restore register contents on exception entry */
    if bb.Region == RegionHandler {
        vv.Flags |= V_volatile
    }

    /* a use only generates liveness if no prior definition in this block hides it */
    vv.Range.record(p)
    if !bb.Kill.Test(idx) {
        bb.Gen.Set(idx)
    }
    vv.SpillCost += self.costinc(bb)
}

func (self Liveness) trackDef(cfg *CFG, bb *BasicBlock, idx int, p AbsPos) {
    vv := cfg.VarOf(idx)
    if bb.Region == RegionHandler {
        vv.Flags |= V_volatile
    }
    vv.Range.record(p)
    bb.Kill.Set(idx)
    vv.SpillCost += self.costinc(bb)
}

/* checkSlot enforces the opcode descriptor contract on one operand slot */
func (self Liveness) checkSlot(ins *Ins, kind _SlotKind, v int, slot string) {
    if (kind == S_none) != (v == NoVar) {
        panic(fmt.Sprintf("liveness: operand mismatch on %s slot of `%s`", slot, ins))
    }
}

func (self Liveness) scanBlock(cfg *CFG, bb *BasicBlock) {
    for i := range bb.Ins {
        ins := &bb.Ins[i]
        spec := specof(ins.Op)

        /* two slots per instruction, uses order before the definition */
        up := mkpos(bb.Dfn, 2 * i)
        kp := mkpos(bb.Dfn, 2 * i + 1)

        /* nothing to see on no-ops */
        if ins.Op == OP_nop {
            continue
        }

        /* operand slots must agree with the descriptor table */
        self.checkSlot(ins, spec.Src1, ins.Src1, "src1")
        self.checkSlot(ins, spec.Src2, ins.Src2, "src2")
        self.checkSlot(ins, spec.Dst, ins.Dst, "dst")

        /* a tail transfer leaves the method through the argument storage
         * locations, so every incoming argument stays live across it */
        if ins.Op == OP_tailcall {
            for idx := range cfg.Vars {
                if cfg.Vars[idx].Flags & V_arg != 0 && !bb.Kill.Test(idx) {
                    bb.Gen.Set(idx)
                }
            }
            continue
        }

        /* all uses order before the kills of the same instruction, so
         * `move r <- r` and `store *r <- r` register the read first */
        if ins.Op == OP_load {
            for _, idx := range cfg.affectedVars(ins) {
                self.trackUse(cfg, bb, idx, up)
            }
        }
        if spec.Src1 == S_var {
            self.trackUse(cfg, bb, ins.Src1, up)
        }
        if spec.Src2 == S_var {
            self.trackUse(cfg, bb, ins.Src2, up)
        }

        /* the base address of a memory store is read, not written */
        if spec.MemStore {
            self.trackUse(cfg, bb, ins.Dst, up)
        }

        /* an indirect store defines every variable it may touch */
        if ins.Op == OP_store {
            for _, idx := range cfg.affectedVars(ins) {
                self.trackDef(cfg, bb, idx, kp)
            }
        }
        if spec.Dst == S_var && !spec.MemStore {
            self.trackDef(cfg, bb, ins.Dst, kp)
        }
    }
}

/* livein computes (live_out - kill) ∪ gen into a freshly carved live-in set */
func (self Liveness) livein(cfg *CFG, bb *BasicBlock) {
    bb.LiveIn = newBitSetPool(cfg.Pool, len(cfg.Vars))
    bb.LiveIn.CopyFrom(bb.LiveOut)
    bb.LiveIn.Sub(bb.Kill)
    bb.LiveIn.Union(bb.Gen)
}

func (self Liveness) solve(cfg *CFG) {
    nb := len(cfg.Blocks)
    old := newBitSet(len(cfg.Vars))
    inq := make([]bool, nb + 1)
    wl := lane.NewStack()

    /* seed every block; cfg.Blocks is in increasing dfn order, so the LIFO
     * pops in decreasing dfn order, which converges faster on backward
     * problems since later-numbered blocks tend to be successors */
    for _, bb := range cfg.Blocks {
        wl.Push(bb)
        inq[bb.Dfn] = true
    }

    /* iterate to fixpoint, the transfer functions are monotone over a
     * finite lattice so the number of re-pushes is bounded */
    for !wl.Empty() {
        bb := wl.Pop().(*BasicBlock)
        inq[bb.Dfn] = false

        /* exit blocks keep an empty live-out */
        if len(bb.Succ) == 0 {
            continue
        }

        /* first visit always propagates */
        changed := bb.LiveIn == nil
        if !changed {
            old.CopyFrom(bb.LiveOut)
        }

        /* live_out = ∪ live_in(succ), computing successor live-ins on demand */
        for _, sb := range bb.Succ {
            if sb.LiveIn == nil {
                self.livein(cfg, sb)
            }
            bb.LiveOut.Union(sb.LiveIn)
        }

        /* re-propagate to predecessors if anything changed, pushing them on
         * top of the stack so they are processed next */
        if changed || !old.Equal(bb.LiveOut) {
            self.livein(cfg, bb)
            for _, pb := range bb.Pred {
                /* dangling predecessors from partially built CFGs carry no
                 * gen set, skip them */
                if pb.Gen != nil && !inq[pb.Dfn] {
                    wl.Push(pb)
                    inq[pb.Dfn] = true
                }
            }
        }
    }

    /* blocks never demanded by any successor, e.g. backward-unreachable
     * handler entries, still need a live-in set */
    for _, bb := range cfg.Blocks {
        if bb.LiveIn == nil {
            self.livein(cfg, bb)
        }
    }
}

/* widenRanges extends every live variable's range to the entry and exit
 * positions of every block it is live through, not just where it is used */
func (self Liveness) widenRanges(cfg *CFG) {
    for _, bb := range cfg.Blocks {
        if bb.LiveOut == nil {
            continue
        }
        ep, xp := bb.entryPos(), bb.exitPos()
        bb.LiveIn.ForEach(func(idx int) { cfg.Vars[idx].Range.record(ep) })
        bb.LiveOut.ForEach(func(idx int) { cfg.Vars[idx].Range.record(xp) })
    }
}

func (self Liveness) markVolatile(cfg *CFG, bb *BasicBlock) {
    if cfg.Aliasing != nil {
        cfg.Aliasing.BeginBlock(bb)
    }
    for i := range bb.Ins {
        ins := &bb.Ins[i]
        spec := specof(ins.Op)
        if ins.Op == OP_nop {
            continue
        }
        if spec.Indirect {
            for _, idx := range cfg.affectedVars(ins) {
                cfg.VarOf(idx).Flags |= V_volatile
            }
        }
        if spec.Src1 == S_var {
            cfg.VarOf(ins.Src1).Flags |= V_volatile
        }
        if spec.Src2 == S_var {
            cfg.VarOf(ins.Src2).Flags |= V_volatile
        }
        if spec.Dst == S_var {
            cfg.VarOf(ins.Dst).Flags |= V_volatile
        }
    }
}

/* markExceptionClauses floods forward from every handler block: anything a
 * handler can reach may be entered outside normal control flow, so every
 * variable referenced there must stay out of registers */
func (self Liveness) markExceptionClauses(cfg *CFG) {
    vis := make(map[int]struct{}, len(cfg.Blocks))
    st := lane.NewStack()

    /* try bodies are liveness-tracked normally, only handler, filter and
     * finally blocks root the flood */
    for _, bb := range cfg.Blocks {
        if bb.Region == RegionHandler {
            st.Push(bb)
        }
    }

    for !st.Empty() {
        bb := st.Pop().(*BasicBlock)
        if _, ok := vis[bb.Id]; ok {
            continue
        }
        vis[bb.Id] = struct{}{}
        self.markVolatile(cfg, bb)
        for _, sb := range bb.Succ {
            if _, ok := vis[sb.Id]; !ok {
                st.Push(sb)
            }
        }
    }
}

func (self Liveness) dump(cfg *CFG) {
    spew.Config.SortKeys = true
    spew.Config.DisablePointerMethods = true
    for _, bb := range cfg.Blocks {
        fmt.Printf("bb_%d: gen = %s, kill = %s, live_in = %s, live_out = %s\n", bb.Id, bb.Gen, bb.Kill, bb.LiveIn, bb.LiveOut)
    }
    spew.Dump(cfg.Vars)
}

func (self Liveness) Apply(cfg *CFG) {
    if cfg.compDone & compLiveness != 0 {
        panic("liveness: analysis already performed on this method")
    }

    /* mark done before the early return, a zero-variable method is still analyzed */
    cfg.compDone |= compLiveness
    if len(cfg.Vars) == 0 {
        return
    }

    /* gen, kill and live-out are carved up front from one contiguous
     * region, live-in sets lazily as the solver first demands them */
    for _, bb := range cfg.Blocks {
        bb.Gen = newBitSetPool(cfg.Pool, len(cfg.Vars))
        bb.Kill = newBitSetPool(cfg.Pool, len(cfg.Vars))
        bb.LiveIn = nil
        bb.LiveOut = newBitSetPool(cfg.Pool, len(cfg.Vars))
    }

    /* reset ranges to empty and costs to zero */
    for i := range cfg.Vars {
        cfg.Vars[i].Range = LiveRange { FirstUse: _P_max, LastUse: 0 }
        cfg.Vars[i].SpillCost = 0
    }

    /* per-block gen / kill scan */
    for _, bb := range cfg.Blocks {
        if cfg.Aliasing != nil {
            cfg.Aliasing.BeginBlock(bb)
        }
        self.scanBlock(cfg, bb)
    }

    /* backward fixpoint, then boundary widening and handler flooding */
    self.solve(cfg)
    self.widenRanges(cfg)
    self.markExceptionClauses(cfg)

    /* argument values exist from function entry, the prologue copies them
     * into their storage before the first IR position */
    for i := range cfg.Vars {
        if cfg.Vars[i].Flags & V_arg != 0 {
            cfg.Vars[i].Range.FirstUse = 0
        }
    }

    if debugLiveness {
        self.dump(cfg)
    }
}
