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

// AliasInfo is the optional points-to collaborator. Given an instruction with
// an indirect memory access it reports every variable the access may touch.
// When no collaborator is attached the analysis falls back to the single
// exact variable named by the instruction's address operand.
type AliasInfo interface {
    BeginBlock(bb *BasicBlock)
    AffectedVars(ins *Ins) []int
}
