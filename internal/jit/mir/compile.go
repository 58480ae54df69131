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

type Pass interface {
    Apply(*CFG)
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

var Passes = [...]PassDescriptor {
    { Name: "Liveness Analysis"           , Pass: new(Liveness) },
    { Name: "Dead Initializer Elimination", Pass: new(InitLocals) },
}

// Analyze computes liveness for one method and strips the dead parts of its
// locals initialization, in that order. The register allocator runs after
// this on the same CFG.
func Analyze(cfg *CFG) {
    for _, p := range Passes {
        p.Pass.Apply(cfg)
    }
}
