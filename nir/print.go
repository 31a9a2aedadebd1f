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

import (
    `strings`
)

func printList(sb *strings.Builder, list []CFNode, depth int) {
    for _, node := range list {
        switch n := node.(type) {
            case *Block: {
                for _, line := range strings.Split(n.String(), "\n") {
                    printLine(sb, depth, line)
                }
            }

            /* if-then-else */
            case *If: {
                printLine(sb, depth, n.String() + " {")
                printList(sb, n.Then, depth + 1)
                printLine(sb, depth, "} else {")
                printList(sb, n.Else, depth + 1)
                printLine(sb, depth, "}")
            }

            /* loops */
            case *Loop: {
                printLine(sb, depth, "loop {")
                printList(sb, n.Body, depth + 1)
                printLine(sb, depth, "}")
            }

            /* should not happen */
            default: {
                panic("unreachable")
            }
        }
    }
}

func printLine(sb *strings.Builder, depth int, line string) {
    sb.WriteString(strings.Repeat("    ", depth))
    sb.WriteString(line)
    sb.WriteByte('\n')
}
