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

    `github.com/brianvoe/gofakeit/v6`
    `github.com/stretchr/testify/require`
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/traverse`
)

func mkblock(dfn int, region RegionKind, ins ...Ins) *BasicBlock {
    return &BasicBlock {
        Id:     dfn,
        Dfn:    dfn,
        Region: region,
        Ins:    ins,
    }
}

func mkcfg(nvars int, blocks ...*BasicBlock) *CFG {
    cfg := newCFG(nvars, blocks...)
    cfg.Entry = blocks[0]
    return cfg
}

/* recompute both dataflow equations from the stored sets */
func checkFixpoint(t *testing.T, cfg *CFG) {
    for _, bb := range cfg.Blocks {
        in := newBitSet(len(cfg.Vars))
        in.CopyFrom(bb.LiveOut)
        in.Sub(bb.Kill)
        in.Union(bb.Gen)
        require.True(t, in.Equal(bb.LiveIn), "live_in mismatch on %s", bb)

        out := newBitSet(len(cfg.Vars))
        for _, sb := range bb.Succ {
            out.Union(sb.LiveIn)
        }
        require.True(t, out.Equal(bb.LiveOut), "live_out mismatch on %s", bb)
    }
}

/* every live position must fall inside the variable's recorded range */
func checkRanges(t *testing.T, cfg *CFG) {
    for _, bb := range cfg.Blocks {
        ep, xp := bb.entryPos(), bb.exitPos()
        bb.LiveIn.ForEach(func(idx int) {
            require.True(t, cfg.Vars[idx].Range.Contains(ep), "v%d live-in at %s outside %s", idx, ep, cfg.Vars[idx].Range)
        })
        bb.LiveOut.ForEach(func(idx int) {
            require.True(t, cfg.Vars[idx].Range.Contains(xp), "v%d live-out at %s outside %s", idx, xp, cfg.Vars[idx].Range)
        })
    }
}

func TestLiveness_StraightLine(t *testing.T) {
    bb := mkblock(0, RegionNone,
        InsIConst(0, 42),
        InsAdd(1, 0, 0),
        InsRet(),
    )
    cfg := mkcfg(2, bb)
    cfg.RetVar = 1
    new(Liveness).Apply(cfg)

    require.True(t, bb.Kill.Test(0))
    require.True(t, bb.Kill.Test(1))
    require.False(t, bb.Gen.Test(0))
    require.False(t, bb.Gen.Test(1))
    require.True(t, bb.LiveOut.Empty())
    require.True(t, bb.LiveIn.Empty())

    /* v0 spans its definition slot through its last use, v1 its definition only */
    require.Equal(t, LiveRange { FirstUse: mkpos(0, 1), LastUse: mkpos(0, 2) }, cfg.Vars[0].Range)
    require.Equal(t, LiveRange { FirstUse: mkpos(0, 3), LastUse: mkpos(0, 3) }, cfg.Vars[1].Range)

    /* one definition and two uses of v0, one definition of v1, all at nesting 0 */
    require.Equal(t, uint32(3), cfg.Vars[0].SpillCost)
    require.Equal(t, uint32(1), cfg.Vars[1].SpillCost)
}

func TestLiveness_LoopCarried(t *testing.T) {
    entry := mkblock(0, RegionNone, InsIConst(0, 7))
    header := mkblock(1, RegionNone, InsCmp(0, 0))
    body := mkblock(2, RegionNone, InsNop())
    exit := mkblock(3, RegionNone, InsRet())
    linkBlocks(entry, header)
    linkBlocks(header, body)
    linkBlocks(header, exit)
    linkBlocks(body, header)

    cfg := mkcfg(1, entry, header, body, exit)
    new(Liveness).Apply(cfg)

    /* the back edge must carry v0 around the loop */
    require.True(t, header.LiveIn.Test(0))
    require.True(t, body.LiveOut.Test(0))
    require.True(t, body.LiveIn.Test(0))
    checkFixpoint(t, cfg)
    checkRanges(t, cfg)
}

func TestLiveness_FixpointOnDiamond(t *testing.T) {
    top := mkblock(0, RegionNone, InsIConst(0, 1), InsIConst(1, 2), InsCmp(0, 1))
    left := mkblock(1, RegionNone, InsMove(2, 0))
    right := mkblock(2, RegionNone, InsMove(2, 1))
    join := mkblock(3, RegionNone, InsAdd(3, 2, 0), InsRet())
    linkBlocks(top, left)
    linkBlocks(top, right)
    linkBlocks(left, join)
    linkBlocks(right, join)

    cfg := mkcfg(4, top, left, right, join)
    new(Liveness).Apply(cfg)

    require.True(t, left.LiveIn.Test(0))
    require.True(t, right.LiveIn.Test(1))
    require.True(t, right.LiveIn.Test(0))    // v0 flows through right to the join
    require.True(t, join.LiveIn.Test(2))
    require.False(t, join.LiveOut.Test(3))
    checkFixpoint(t, cfg)
    checkRanges(t, cfg)
}

func TestLiveness_ExceptionHandler(t *testing.T) {
    entry := mkblock(0, RegionNone, InsIConst(2, 1))
    try := mkblock(1, RegionTry, InsIConst(0, 5))
    handler := mkblock(2, RegionHandler, InsMove(1, 0))
    exit := mkblock(3, RegionNone, InsRet())
    linkBlocks(entry, try)
    linkBlocks(try, exit)
    linkBlocks(handler, exit)

    cfg := mkcfg(3, entry, try, handler, exit)
    new(Liveness).Apply(cfg)

    /* v0 is a single-def single-use variable, but the handler touches it */
    require.NotZero(t, cfg.Vars[0].Flags & V_volatile)
    require.NotZero(t, cfg.Vars[1].Flags & V_volatile)
    require.Zero(t, cfg.Vars[2].Flags & V_volatile)
    checkFixpoint(t, cfg)
}

func TestLiveness_VolatileFloodReachability(t *testing.T) {
    b0 := mkblock(0, RegionNone, InsIConst(0, 1))
    b1 := mkblock(1, RegionTry, InsMove(1, 0))
    b2 := mkblock(2, RegionNone, InsAdd(2, 1, 1), InsRet())
    b3 := mkblock(3, RegionHandler, InsIConst(3, 0))
    b4 := mkblock(4, RegionNone, InsMove(4, 3))
    linkBlocks(b0, b1)
    linkBlocks(b1, b2)
    linkBlocks(b3, b4)
    linkBlocks(b4, b2)

    cfg := mkcfg(5, b0, b1, b2, b3, b4)
    new(Liveness).Apply(cfg)

    /* recompute handler reachability on an independent graph representation */
    g := simple.NewDirectedGraph()
    for _, bb := range cfg.Blocks {
        g.AddNode(simple.Node(bb.Id))
    }
    for _, bb := range cfg.Blocks {
        for _, sb := range bb.Succ {
            g.SetEdge(g.NewEdge(g.Node(int64(bb.Id)), g.Node(int64(sb.Id))))
        }
    }
    reach := make(map[int]bool)
    for _, bb := range cfg.Blocks {
        if bb.Region == RegionHandler {
            df := traverse.DepthFirst {
                Visit: func(n graph.Node) { reach[int(n.ID())] = true },
            }
            df.Walk(g, g.Node(int64(bb.Id)), nil)
        }
    }

    /* a variable must be volatile iff some handler-reachable block references it */
    expect := make([]bool, len(cfg.Vars))
    for _, bb := range cfg.Blocks {
        if !reach[bb.Id] {
            continue
        }
        for i := range bb.Ins {
            ins := &bb.Ins[i]
            spec := specof(ins.Op)
            if spec.Src1 == S_var { expect[ins.Src1] = true }
            if spec.Src2 == S_var { expect[ins.Src2] = true }
            if spec.Dst == S_var { expect[ins.Dst] = true }
        }
    }
    for idx := range cfg.Vars {
        require.Equal(t, expect[idx], cfg.Vars[idx].Flags & V_volatile != 0, "volatility of v%d", idx)
    }
}

func TestLiveness_ArgumentRange(t *testing.T) {
    entry := mkblock(0, RegionNone, InsIConst(0, 9))
    body := mkblock(1, RegionNone, InsMove(2, 0), InsAdd(2, 2, 1), InsRet())
    linkBlocks(entry, body)

    cfg := mkcfg(3, entry, body)
    cfg.Vars[0].Flags |= V_arg
    cfg.Vars[1].Flags |= V_arg
    new(Liveness).Apply(cfg)

    /* arguments live from the absolute start of the method, even v0 whose
     * first recorded position is its redefinition in the entry block */
    require.Equal(t, AbsPos(0), cfg.Vars[0].Range.FirstUse)
    require.Equal(t, AbsPos(0), cfg.Vars[1].Range.FirstUse)
    require.NotEqual(t, AbsPos(0), cfg.Vars[2].Range.FirstUse)
}

func TestLiveness_TailCallKeepsArguments(t *testing.T) {
    bb := mkblock(0, RegionNone, InsIConst(1, 3), InsTailCall())
    cfg := mkcfg(3, bb)
    cfg.Vars[0].Flags |= V_arg
    cfg.Vars[1].Flags |= V_arg
    new(Liveness).Apply(cfg)

    /* v1 was redefined before the transfer, its incoming value is dead */
    require.True(t, bb.Gen.Test(0))
    require.False(t, bb.Gen.Test(1))
    require.False(t, bb.Gen.Test(2))
}

func TestLiveness_MemStoreIsUseLike(t *testing.T) {
    bb := mkblock(0, RegionNone, InsStoreMem(0, 1, 8), InsRet())
    cfg := mkcfg(2, bb)
    new(Liveness).Apply(cfg)

    /* storing through v0 reads the address, it does not define v0 */
    require.True(t, bb.Gen.Test(0))
    require.True(t, bb.Gen.Test(1))
    require.False(t, bb.Kill.Test(0))
    require.False(t, bb.Kill.Test(1))
}

func TestLiveness_AddrTaken(t *testing.T) {
    bb := mkblock(0, RegionNone, InsLdAddr(0), InsRet())
    cfg := mkcfg(1, bb)
    new(Liveness).Apply(cfg)

    /* taking the address redefines the variable rather than reading it */
    require.True(t, bb.Kill.Test(0))
    require.False(t, bb.Gen.Test(0))
    require.Equal(t, LiveRange { FirstUse: mkpos(0, 1), LastUse: mkpos(0, 1) }, cfg.Vars[0].Range)
    require.Equal(t, uint32(1), cfg.Vars[0].SpillCost)
}

type aliasStub struct {
    begun int
    vars  map[*Ins][]int
}

func (self *aliasStub) BeginBlock(*BasicBlock) {
    self.begun++
}

func (self *aliasStub) AffectedVars(ins *Ins) []int {
    return self.vars[ins]
}

func TestLiveness_AliasCollaborator(t *testing.T) {
    bb := mkblock(0, RegionNone, InsStore(0, 1), InsLoad(2, 3))
    cfg := mkcfg(7, bb)
    stub := &aliasStub { vars: map[*Ins][]int {
        &bb.Ins[0]: { 4, 5 },
        &bb.Ins[1]: { 6 },
    }}
    cfg.Aliasing = stub
    new(Liveness).Apply(cfg)

    /* the collaborator's answer replaces the exact address operands entirely */
    require.True(t, bb.Kill.Test(4))
    require.True(t, bb.Kill.Test(5))
    require.True(t, bb.Gen.Test(6))
    require.True(t, bb.Gen.Test(1))
    require.True(t, bb.Kill.Test(2))
    require.False(t, bb.Kill.Test(0))
    require.False(t, bb.Gen.Test(3))
    require.GreaterOrEqual(t, stub.begun, 1)
}

func TestLiveness_AliasFallback(t *testing.T) {
    bb := mkblock(0, RegionNone, InsStore(0, 1), InsLoad(2, 3))
    cfg := mkcfg(4, bb)
    new(Liveness).Apply(cfg)

    /* without a collaborator the single exact address variable is used */
    require.True(t, bb.Kill.Test(0))
    require.True(t, bb.Gen.Test(3))
    require.True(t, bb.Gen.Test(1))
    require.True(t, bb.Kill.Test(2))
}

func TestLiveness_SpillCostNesting(t *testing.T) {
    bb := mkblock(0, RegionNone, InsIConst(0, 1), InsMove(1, 0))
    bb.Nesting = 2
    cfg := mkcfg(2, bb)
    new(Liveness).Apply(cfg)

    /* each access inside a doubly nested loop weighs 1 << (2*2) */
    require.Equal(t, uint32(32), cfg.Vars[0].SpillCost)
    require.Equal(t, uint32(16), cfg.Vars[1].SpillCost)
}

func TestLiveness_Reinvocation(t *testing.T) {
    cfg := mkcfg(1, mkblock(0, RegionNone, InsRet()))
    new(Liveness).Apply(cfg)
    require.PanicsWithValue(t, "liveness: analysis already performed on this method", func() {
        new(Liveness).Apply(cfg)
    })
}

func TestLiveness_NoVariables(t *testing.T) {
    bb := mkblock(0, RegionNone, InsRet())
    cfg := mkcfg(0, bb)
    new(Liveness).Apply(cfg)

    /* documented no-op, not even the bit sets are allocated */
    require.Nil(t, bb.Gen)
    require.Nil(t, bb.LiveOut)
    require.Panics(t, func() { new(Liveness).Apply(cfg) })
}

func TestLiveness_OperandMismatch(t *testing.T) {
    bb := mkblock(0, RegionNone, Ins { Op: OP_move, Dst: 0, Src1: NoVar, Src2: NoVar, Addr: NoVar })
    cfg := mkcfg(1, bb)
    require.Panics(t, func() { new(Liveness).Apply(cfg) })
}

func TestLiveness_DanglingPredecessor(t *testing.T) {
    b0 := mkblock(0, RegionNone, InsIConst(0, 1))
    b1 := mkblock(1, RegionNone, InsMove(1, 0), InsRet())
    linkBlocks(b0, b1)

    /* a predecessor left behind by the CFG builder, absent from the master
     * block list, must not derail re-propagation */
    dangling := mkblock(99, RegionNone)
    b0.Pred = append(b0.Pred, dangling)

    cfg := mkcfg(2, b0, b1)
    new(Liveness).Apply(cfg)
    checkFixpoint(t, cfg)
}

func randIns(f *gofakeit.Faker, nv int) Ins {
    v := func() int { return f.Number(0, nv - 1) }
    switch f.Number(0, 5) {
        case 0  : return InsIConst(v(), int64(f.Number(0, 100)))
        case 1  : return InsMove(v(), v())
        case 2  : return InsAdd(v(), v(), v())
        case 3  : return InsCmp(v(), v())
        case 4  : return InsStoreMem(v(), v(), 8)
        default : return InsNop()
    }
}

func TestLiveness_RandomizedSoundness(t *testing.T) {
    f := gofakeit.New(0x20220905)
    for round := 0; round < 64; round++ {
        nv := f.Number(1, 12)
        nb := f.Number(2, 10)
        blocks := make([]*BasicBlock, nb)

        /* a fall-through spine plus a handful of random forward or back edges */
        for i := range blocks {
            blocks[i] = mkblock(i, RegionNone)
            blocks[i].Nesting = f.Number(0, 2)
            for j := f.Number(0, 4); j > 0; j-- {
                blocks[i].Ins = append(blocks[i].Ins, randIns(f, nv))
            }
        }
        for i := 0; i < nb - 1; i++ {
            linkBlocks(blocks[i], blocks[i + 1])
        }
        for i := f.Number(0, nb); i > 0; i-- {
            a, b := f.Number(0, nb - 1), f.Number(0, nb - 1)
            if a != b {
                linkBlocks(blocks[a], blocks[b])
            }
        }

        cfg := mkcfg(nv, blocks...)
        new(Liveness).Apply(cfg)
        checkFixpoint(t, cfg)
        checkRanges(t, cfg)
    }
}
