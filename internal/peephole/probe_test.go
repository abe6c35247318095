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

package peephole

import (
    `testing`

    `github.com/stretchr/testify/require`

    `github.com/cloudwego/zpeep/isa`
)

func TestProbe_ConditionCodeDead(t *testing.T) {
    var p [6]isa.Index
    s := build(func(b *isa.Builder) {
        p[0] = b.RI(isa.OP_LHI, isa.R1, 0)
        p[1] = b.BRC(isa.COND_BRC, "L1")
        p[2] = b.LOC(isa.OP_LOCR, isa.R1, isa.R2, isa.COND_BE)
        p[3] = b.Label("L1")
        p[4] = b.RR(isa.OP_AR, isa.R1, isa.R2)
        p[5] = b.LOC(isa.OP_LOCR, isa.R1, isa.R2, isa.COND_BE)
    })
    require.True(t, ccDeadFrom(s, p[0]))
    require.True(t, ccDeadFrom(s, p[3]))
    require.False(t, ccDeadFrom(s, p[2]))
    require.False(t, ccDeadFrom(s, p[5]))
    require.True(t, ccDeadFrom(s, isa.Nil))
}

func TestProbe_ConditionCodeDeadBothPaths(t *testing.T) {
    for _, v := range []struct {
        taken   isa.OpCode
        through isa.OpCode
        dead    bool
    } {
        { isa.OP_AR   , isa.OP_AR   , true  },
        { isa.OP_LOCR , isa.OP_AR   , false },
        { isa.OP_AR   , isa.OP_LOCR , false },
    } {
        var p isa.Index
        s := build(func(b *isa.Builder) {
            p = b.CRJ(isa.OP_CRJ, isa.R1, isa.R2, isa.COND_BE, "L1")
            b.Emit(ccuser(v.through))
            b.Label("L1")
            b.Emit(ccuser(v.taken))
        })
        require.Equal(t, v.dead, ccDeadFrom(s, p), s.String())
    }
}

func ccuser(op isa.OpCode) isa.Instr {
    if op == isa.OP_LOCR {
        ins := isa.RR(op, isa.R3, isa.R4)
        ins.M3 = isa.COND_BE.Mask()
        return ins
    } else {
        return isa.RR(op, isa.R3, isa.R4)
    }
}

func TestProbe_ConditionCodeCall(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        p = b.Call(isa.R14, "callee")
        b.RR(isa.OP_AR, isa.R1, isa.R2)
    })
    require.False(t, ccDeadFrom(s, p))
}

func TestProbe_ConditionCodeLoop(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        b.Label("L1")
        p = b.RI(isa.OP_LHI, isa.R1, 0)
        b.BRC(isa.COND_BRC, "L1")
    })
    require.False(t, ccDeadFrom(s, p))
}

func TestProbe_DefinedWithinLastK(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        b.RR(isa.OP_AR, isa.R3, isa.R4)
        b.Marker(isa.OP_FENCE)
        b.RI(isa.OP_LHI, isa.R5, 0)
        p = b.CR(isa.R2, isa.R3)
    })
    require.Equal(t, 2, definedWithinLastK(s, p, isa.R3, 3))
    require.Equal(t, 1, definedWithinLastK(s, p, isa.R5, 3))
    require.Zero(t, definedWithinLastK(s, p, isa.R3, 1))
    require.Zero(t, definedWithinLastK(s, p, isa.R2, 3))
}

func TestProbe_UsedInFutureMemRef(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        p = b.LTR(isa.R2, isa.R2)
        b.RR(isa.OP_AR, isa.R4, isa.R5)
        b.RX(isa.OP_L, isa.R3, isa.Idx(isa.R1, isa.R2, 0))
    })
    require.True(t, usedInFutureMemRef(s, p, 4, isa.R2))
    require.False(t, usedInFutureMemRef(s, p, 1, isa.R2))
    require.False(t, usedInFutureMemRef(s, p, 4, isa.R4))
}

func TestProbe_UsedInFutureMemRefBarrier(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        p = b.LTR(isa.R2, isa.R2)
        b.Label("L1")
        b.RX(isa.OP_L, isa.R3, isa.Ptr(isa.R2, 0))
    })
    require.False(t, usedInFutureMemRef(s, p, 4, isa.R2))
}

func TestProbe_UsedInFutureMemRefSkipsMarkers(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        p = b.LTR(isa.R2, isa.R2)
        b.BBStart(false)
        b.BBStart(false)
        b.RX(isa.OP_L, isa.R3, isa.Ptr(isa.R2, 0))
    })
    require.True(t, usedInFutureMemRef(s, p, 1, isa.R2))
}

func TestProbe_UsedInFutureMemRefRedefined(t *testing.T) {
    var p isa.Index
    s := build(func(b *isa.Builder) {
        p = b.LTR(isa.R2, isa.R2)
        b.RI(isa.OP_LHI, isa.R2, 0)
        b.RX(isa.OP_L, isa.R3, isa.Ptr(isa.R2, 0))
    })
    require.False(t, usedInFutureMemRef(s, p, 4, isa.R2))
}

func TestProbe_WindowClear(t *testing.T) {
    var p [4]isa.Index
    s := build(func(b *isa.Builder) {
        p[0] = b.LR(isa.R1, isa.R2)
        p[1] = b.RI(isa.OP_LHI, isa.R3, 0)
        p[2] = b.RR(isa.OP_AR, isa.R1, isa.R3)
        p[3] = b.LR(isa.R2, isa.R1)
    })
    require.True(t, ccWindowClear(s, p[0], p[2]))
    require.False(t, ccWindowClear(s, p[0], p[3]))
}

func TestNav_SkipStructural(t *testing.T) {
    var p [4]isa.Index
    s := build(func(b *isa.Builder) {
        p[0] = b.LR(isa.R1, isa.R2)
        p[1] = b.Label("L1")
        p[2] = b.Marker(isa.OP_FENCE)
        p[3] = b.LR(isa.R2, isa.R1)
    })
    require.Equal(t, p[3], nextReal(s, p[0]))
    require.Equal(t, p[0], prevReal(s, p[3]))
    require.Equal(t, p[3], skipStructural(s, p[1], forward))
    require.Equal(t, isa.Nil, nextReal(s, p[3]))
    require.True(t, barrierAt(s, p[1]))
    require.True(t, barrierAt(s, isa.Nil))
    require.False(t, barrierAt(s, p[2]))
}
