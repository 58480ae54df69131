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
    `os`

    `github.com/ajstarks/svgo`
)

func draw_liverange(fn string, cfg *CFG) {
    maxi := 0
    rowp := make([]AbsPos, 0, len(cfg.Blocks) * 4)
    rows := make([]string, 0, len(cfg.Blocks) * 4)

    /* one row per block entry, instruction and block exit, in dfn order */
    for _, bb := range cfg.Blocks {
        rowp = append(rowp, bb.entryPos())
        rows = append(rows, fmt.Sprintf("bb_%d:", bb.Id))
        for i := range bb.Ins {
            rowp = append(rowp, mkpos(bb.Dfn, 2 * i))
            rows = append(rows, bb.Ins[i].String())
        }
        rowp = append(rowp, bb.exitPos())
        rows = append(rows, "")
    }
    for _, s := range rows {
        if len(s) > maxi {
            maxi = len(s)
        }
    }

    /* variables with a non-empty recorded range */
    vars := make([]*Var, 0, len(cfg.Vars))
    for i := range cfg.Vars {
        if vv := &cfg.Vars[i]; vv.Range.FirstUse <= vv.Range.LastUse {
            vars = append(vars, vv)
        }
    }

    insw := maxi * 9 + 120
    varw := 64
    fp, err := os.OpenFile(fn, os.O_RDWR | os.O_CREATE | os.O_TRUNC, 0644)
    if err != nil {
        panic(err)
    }
    p := svg.New(fp)
    p.Start(len(vars) * varw + insw + 100, len(rows) * 24 + 100)
    if _, err = fp.WriteString(`<rect width="100%" height="100%" fill="white" />` + "\n"); err != nil {
        panic(err)
    }

    /* instruction column */
    for i, s := range rows {
        h := 95 + i * 24
        p.Text(insw, 100 + i * 24, s, "fill:black;font-size:16px;font-family:monospace;text-anchor:end")
        p.Line(insw + 10, h, len(vars) * varw + insw + 50, h, "stroke:lightgray")
    }

    /* one bar per live variable, a kill slot draws hollow, a use slot solid */
    for i, vv := range vars {
        x := insw + i * varw + 50
        y0, y1 := -1, -1
        for j, rp := range rowp {
            if vv.Range.Contains(rp) {
                if y0 < 0 {
                    y0 = 95 + j * 24
                }
                y1 = 95 + j * 24
            }
        }
        p.Text(x, 70, fmt.Sprintf("v%d", vv.Idx), "fill:black;font-size:16px;font-family:monospace;text-anchor:middle")
        if y0 >= 0 {
            p.Line(x, y0, x, y1, "stroke:black;stroke-width:3")
            p.Circle(x, y0, 4, "fill:white;stroke:black;stroke-width:2")
            p.Circle(x, y1, 4, "fill:black;stroke:black;stroke-width:2")
        }
    }

    p.End()
    if err = fp.Close(); err != nil {
        panic(err)
    }
}
