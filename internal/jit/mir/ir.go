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

// NoVar marks an operand slot that does not refer to a tracked variable.
const NoVar = -1

type OpCode uint8

const (
    OP_nop      OpCode = iota   // no operation
    OP_arg                      // incoming argument pseudo-definition
    OP_ldaddr                   // Dv address-taken marker
    OP_iconst                   // Iv -> Dv
    OP_i8const                  // i64(Iv) -> Dv
    OP_r8const                  // f64(Iv) -> Dv
    OP_move                     // Sv1 -> Dv
    OP_add                      // Sv1 + Sv2 -> Dv
    OP_sub                      // Sv1 - Sv2 -> Dv
    OP_mul                      // Sv1 * Sv2 -> Dv
    OP_load                     // *Av -> Dv, alias-affected read
    OP_store                    // Sv1 -> *Av, alias-affected write
    OP_storemem                 // Sv1 -> *(Dv + Iv), address read through Dv
    OP_cmp                      // compare Sv1, Sv2
    OP_br                       // conditional or unconditional branch
    OP_call                     // call with Sv1, Sv2 arguments into Dv
    OP_tailcall                 // tail transfer reusing the argument slots
    OP_ret                      // return, the value travels via the return variable
)

type _SlotKind uint8

const (
    S_none _SlotKind = iota     // slot holds no variable reference
    S_var                       // slot holds a tracked variable id
)

// OpSpec describes which operand slots of an opcode are variable references,
// and how its destination behaves. The table is initialized once and treated
// as read-only configuration.
type OpSpec struct {
    Src1     _SlotKind
    Src2     _SlotKind
    Dst      _SlotKind
    MemStore bool       // destination is a store-to-memory base address, a use-like event
    Indirect bool       // access resolves through the aliasing collaborator
    Const    bool       // trivial constant load, candidate for dead-store elimination
}

var opSpecTab = [...]OpSpec {
    OP_nop      : {},
    OP_arg      : { Dst: S_var },
    OP_ldaddr   : { Dst: S_var },
    OP_iconst   : { Dst: S_var, Const: true },
    OP_i8const  : { Dst: S_var, Const: true },
    OP_r8const  : { Dst: S_var, Const: true },
    OP_move     : { Src1: S_var, Dst: S_var },
    OP_add      : { Src1: S_var, Src2: S_var, Dst: S_var },
    OP_sub      : { Src1: S_var, Src2: S_var, Dst: S_var },
    OP_mul      : { Src1: S_var, Src2: S_var, Dst: S_var },
    OP_load     : { Dst: S_var, Indirect: true },
    OP_store    : { Src1: S_var, Indirect: true },
    OP_storemem : { Src1: S_var, Dst: S_var, MemStore: true },
    OP_cmp      : { Src1: S_var, Src2: S_var },
    OP_br       : {},
    OP_call     : { Src1: S_var, Src2: S_var, Dst: S_var },
    OP_tailcall : {},
    OP_ret      : {},
}

var opNameTab = [...]string {
    OP_nop      : "nop",
    OP_arg      : "arg",
    OP_ldaddr   : "ldaddr",
    OP_iconst   : "iconst",
    OP_i8const  : "i8const",
    OP_r8const  : "r8const",
    OP_move     : "move",
    OP_add      : "add",
    OP_sub      : "sub",
    OP_mul      : "mul",
    OP_load     : "load",
    OP_store    : "store",
    OP_storemem : "storemem",
    OP_cmp      : "cmp",
    OP_br       : "br",
    OP_call     : "call",
    OP_tailcall : "tailcall",
    OP_ret      : "ret",
}

func specof(op OpCode) *OpSpec {
    if int(op) >= len(opSpecTab) {
        panic(fmt.Sprintf("mir: invalid opcode: %d", op))
    } else {
        return &opSpecTab[op]
    }
}

func (self OpCode) String() string {
    if int(self) >= len(opNameTab) {
        return fmt.Sprintf("OpCode(%d)", uint8(self))
    } else {
        return opNameTab[self]
    }
}

// Ins is one flat instruction: an opcode, up to two source operands, at most
// one destination, an optional address operand for indirect accesses, and a
// constant payload.
type Ins struct {
    Op   OpCode
    Dst  int
    Src1 int
    Src2 int
    Addr int        // exact address variable, the aliasing fallback for OP_load / OP_store
    Iv   int64
}

func mkins(op OpCode) Ins {
    return Ins { Op: op, Dst: NoVar, Src1: NoVar, Src2: NoVar, Addr: NoVar }
}

func (self Ins) dv(v int) Ins    { self.Dst = v; return self }
func (self Ins) sv1(v int) Ins   { self.Src1 = v; return self }
func (self Ins) sv2(v int) Ins   { self.Src2 = v; return self }
func (self Ins) av(v int) Ins    { self.Addr = v; return self }
func (self Ins) iv(v int64) Ins  { self.Iv = v; return self }

/* instruction constructors, used by the instruction selector and the tests */

func InsNop() Ins                              { return mkins(OP_nop) }
func InsArg(dv int) Ins                        { return mkins(OP_arg).dv(dv) }
func InsLdAddr(dv int) Ins                     { return mkins(OP_ldaddr).dv(dv) }
func InsIConst(dv int, iv int64) Ins           { return mkins(OP_iconst).dv(dv).iv(iv) }
func InsI8Const(dv int, iv int64) Ins          { return mkins(OP_i8const).dv(dv).iv(iv) }
func InsR8Const(dv int, iv int64) Ins          { return mkins(OP_r8const).dv(dv).iv(iv) }
func InsMove(dv int, sv int) Ins               { return mkins(OP_move).dv(dv).sv1(sv) }
func InsAdd(dv int, sv1 int, sv2 int) Ins      { return mkins(OP_add).dv(dv).sv1(sv1).sv2(sv2) }
func InsSub(dv int, sv1 int, sv2 int) Ins      { return mkins(OP_sub).dv(dv).sv1(sv1).sv2(sv2) }
func InsMul(dv int, sv1 int, sv2 int) Ins      { return mkins(OP_mul).dv(dv).sv1(sv1).sv2(sv2) }
func InsLoad(dv int, av int) Ins               { return mkins(OP_load).dv(dv).av(av) }
func InsStore(av int, sv int) Ins              { return mkins(OP_store).av(av).sv1(sv) }
func InsStoreMem(dv int, sv int, iv int64) Ins { return mkins(OP_storemem).dv(dv).sv1(sv).iv(iv) }
func InsCmp(sv1 int, sv2 int) Ins              { return mkins(OP_cmp).sv1(sv1).sv2(sv2) }
func InsBr() Ins                               { return mkins(OP_br) }
func InsCall(dv int, sv1 int, sv2 int) Ins     { return mkins(OP_call).dv(dv).sv1(sv1).sv2(sv2) }
func InsTailCall() Ins                         { return mkins(OP_tailcall) }
func InsRet() Ins                              { return mkins(OP_ret) }

func (self *Ins) nullify() {
    self.Op = OP_nop
    self.Dst = NoVar
    self.Src1 = NoVar
    self.Src2 = NoVar
    self.Addr = NoVar
}

func (self *Ins) String() string {
    switch spec := specof(self.Op); {
        case spec.Indirect && self.Op == OP_load  : return fmt.Sprintf("%s v%d <- *v%d", self.Op, self.Dst, self.Addr)
        case spec.Indirect                        : return fmt.Sprintf("%s *v%d <- v%d", self.Op, self.Addr, self.Src1)
        case spec.MemStore                        : return fmt.Sprintf("%s *(v%d %+d) <- v%d", self.Op, self.Dst, self.Iv, self.Src1)
        case spec.Const                           : return fmt.Sprintf("%s v%d <- %d", self.Op, self.Dst, self.Iv)
        case spec.Dst == S_var && spec.Src2 == S_var : return fmt.Sprintf("%s v%d <- v%d, v%d", self.Op, self.Dst, self.Src1, self.Src2)
        case spec.Dst == S_var && spec.Src1 == S_var : return fmt.Sprintf("%s v%d <- v%d", self.Op, self.Dst, self.Src1)
        case spec.Dst == S_var                    : return fmt.Sprintf("%s v%d", self.Op, self.Dst)
        case spec.Src2 == S_var                   : return fmt.Sprintf("%s v%d, v%d", self.Op, self.Src1, self.Src2)
        case spec.Src1 == S_var                   : return fmt.Sprintf("%s v%d", self.Op, self.Src1)
        default                                   : return self.Op.String()
    }
}
