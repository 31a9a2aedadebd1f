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

package nir

type Pass interface {
    Apply(*Shader) bool
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

var Passes = [...]PassDescriptor {
    { Name: "Copy Propagation"      , Pass: new(CopyProp) },
    { Name: "Dead Code Elimination" , Pass: new(DCE) },
}

// PassHook observes every pass run made by Optimize.
type PassHook func(round int, pass string, progress bool)

// Optimize runs the pass table until no pass makes progress, or for at most
// maxIter rounds when maxIter is positive. It reports whether anything
// changed.
func Optimize(s *Shader, maxIter int, hook PassHook) bool {
    ret := false
    more := true

    /* repeat until settled */
    for round := 0; more && (maxIter <= 0 || round < maxIter); round++ {
        more = false
        for _, p := range Passes {
            progress := p.Pass.Apply(s)
            more = more || progress

            /* notify the observer */
            if hook != nil {
                hook(round, p.Name, progress)
            }
        }
        ret = ret || more
    }

    /* all done */
    return ret
}
