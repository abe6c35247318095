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

package isa

import (
    `fmt`
)

// Kind partitions instructions into structural classes and encoding-format
// families. The format families each have a fixed operand shape.
type Kind uint8

const (
    KindLabel Kind = iota
    KindPseudo
    KindNotExtended
    KindBranch
    KindRR
    KindRRE
    KindRRD
    KindRRF
    KindRRF2
    KindRRS
    KindRIE
    KindRI
    KindRIL
    KindRS
    KindRX
    KindS
)

var _KindNames = [...]string {
    KindLabel       : "Label",
    KindPseudo      : "Pseudo",
    KindNotExtended : "NotExtended",
    KindBranch      : "Branch",
    KindRR          : "RR",
    KindRRE         : "RRE",
    KindRRD         : "RRD",
    KindRRF         : "RRF",
    KindRRF2        : "RRF2",
    KindRRS         : "RRS",
    KindRIE         : "RIE",
    KindRI          : "RI",
    KindRIL         : "RIL",
    KindRS          : "RS",
    KindRX          : "RX",
    KindS           : "S",
}

func (self Kind) String() string {
    if int(self) < len(_KindNames) {
        return _KindNames[self]
    } else {
        return fmt.Sprintf("Kind(%d)", uint8(self))
    }
}

// Structural reports whether instructions of this kind emit no machine code.
func (self Kind) Structural() bool {
    return self == KindLabel || self == KindPseudo || self == KindNotExtended
}

// Shape is the set of operand slots an instruction carries.
type Shape uint16

const (
    S_r1 Shape = 1 << iota
    S_r2
    S_r3
    S_imm
    S_mem
    S_cond
    S_mask
    S_label
    S_sym
)

// Props are the opcode-derived properties of an instruction.
type Props uint32

const (
    P_setcc Props = 1 << iota       // sets the condition code
    P_readcc                        // reads the condition code
    P_cmpflag                       // sets the compare flag
    P_carry                         // sets the carry flag (logical add / subtract)
    P_branch                        // transfers control
    P_xbranch                       // exception branch (trap)
    P_call                          // calls a subroutine
    P_load                          // loads from memory
    P_store                         // stores to memory
    P_compare                       // compares its operands
    P_txn                           // transactional-execution region marker
    P_g32                           // 32-bit operation
    P_g64                           // 64-bit operation
)

// DefMode describes which registers an instruction writes.
type DefMode uint8

const (
    D_none  DefMode = iota  // writes nothing
    D_r1                    // writes R1
    D_pair                  // writes the even-odd pair starting at R1
    D_range                 // writes R1 through R3 (load multiple)
)

// Info is the static description of an opcode.
type Info struct {
    Name  string
    Kind  Kind
    Shape Shape
    Props Props
    Defs  DefMode
}

type OpCode uint8

const (
    OP_LABEL OpCode = iota  // label definition
    OP_FENCE                // scheduling fence
    OP_BBSTART              // basic block start marker
    OP_BBEND                // basic block end marker
    OP_DCB                  // debug counter bump
    OP_ASSOCREGS            // register association
    OP_DEPEND               // register dependency anchor
    OP_LR                   // R2 -> R1
    OP_LGR                  // R2 -> R1 (64-bit)
    OP_LDR                  // float R2 -> R1
    OP_CPYA                 // access R2 -> R1
    OP_LTR                  // R2 -> R1, test R2
    OP_LTGR                 // R2 -> R1, test R2 (64-bit)
    OP_LHR                  // sext16(R2) -> R1
    OP_LCR                  // -R2 -> R1
    OP_LCGR                 // -R2 -> R1 (64-bit)
    OP_LCGFR                // -sext32(R2) -> R1 (64-bit)
    OP_LHI                  // Im -> R1
    OP_LGHI                 // Im -> R1 (64-bit)
    OP_CHI                  // compare R1 with Im
    OP_CGHI                 // compare R1 with Im (64-bit)
    OP_AHI                  // R1 + Im -> R1
    OP_AGHI                 // R1 + Im -> R1 (64-bit)
    OP_AR                   // R1 + R2 -> R1
    OP_AGR                  // R1 + R2 -> R1 (64-bit)
    OP_ALR                  // R1 + R2 -> R1, logical
    OP_ALGR                 // R1 + R2 -> R1, logical (64-bit)
    OP_SR                   // R1 - R2 -> R1
    OP_SGR                  // R1 - R2 -> R1 (64-bit)
    OP_SLR                  // R1 - R2 -> R1, logical
    OP_SLGR                 // R1 - R2 -> R1, logical (64-bit)
    OP_NR                   // R1 & R2 -> R1
    OP_NGR                  // R1 & R2 -> R1 (64-bit)
    OP_OR                   // R1 | R2 -> R1
    OP_OGR                  // R1 | R2 -> R1 (64-bit)
    OP_XR                   // R1 ^ R2 -> R1
    OP_XGR                  // R1 ^ R2 -> R1 (64-bit)
    OP_DR                   // R1:R1+1 / R2 -> R1:R1+1
    OP_DLR                  // R1:R1+1 / R2 -> R1:R1+1, logical
    OP_DLGR                 // R1:R1+1 / R2 -> R1:R1+1, logical (64-bit)
    OP_ARK                  // R2 + R3 -> R1
    OP_AGRK                 // R2 + R3 -> R1 (64-bit)
    OP_ALRK                 // R2 + R3 -> R1, logical
    OP_ALGRK                // R2 + R3 -> R1, logical (64-bit)
    OP_SRK                  // R2 - R3 -> R1
    OP_SGRK                 // R2 - R3 -> R1 (64-bit)
    OP_SLRK                 // R2 - R3 -> R1, logical
    OP_SLGRK                // R2 - R3 -> R1, logical (64-bit)
    OP_NRK                  // R2 & R3 -> R1
    OP_NGRK                 // R2 & R3 -> R1 (64-bit)
    OP_ORK                  // R2 | R3 -> R1
    OP_OGRK                 // R2 | R3 -> R1 (64-bit)
    OP_XRK                  // R2 ^ R3 -> R1
    OP_XGRK                 // R2 ^ R3 -> R1 (64-bit)
    OP_AHIK                 // R2 + Im -> R1
    OP_AGHIK                // R2 + Im -> R1 (64-bit)
    OP_SLL                  // R1 << D(B) -> R1
    OP_SLA                  // R1 << D(B) -> R1, arithmetic
    OP_SRA                  // R1 >> D(B) -> R1, arithmetic
    OP_SRL                  // R1 >> D(B) -> R1
    OP_SLLK                 // R2 << D(B) -> R1
    OP_SLAK                 // R2 << D(B) -> R1, arithmetic
    OP_SRAK                 // R2 >> D(B) -> R1, arithmetic
    OP_SRLK                 // R2 >> D(B) -> R1
    OP_CR                   // compare R1 with R2
    OP_CGR                  // compare R1 with R2 (64-bit)
    OP_CLR                  // compare R1 with R2, logical
    OP_CLGR                 // compare R1 with R2, logical (64-bit)
    OP_CGFR                 // compare R1 with sext32(R2)
    OP_CLGFR                // compare R1 with zext32(R2), logical
    OP_CHLR                 // compare high(R1) with R2
    OP_CLHLR                // compare high(R1) with R2, logical
    OP_CRJ                  // if R1 <Cc> R2: goto Lb
    OP_CGRJ                 // if R1 <Cc> R2: goto Lb (64-bit)
    OP_CLRJ                 // if R1 <Cc> R2: goto Lb, logical
    OP_CLGRJ                // if R1 <Cc> R2: goto Lb, logical (64-bit)
    OP_CIJ                  // if R1 <Cc> Im: goto Lb
    OP_CGIJ                 // if R1 <Cc> Im: goto Lb (64-bit)
    OP_CLIJ                 // if R1 <Cc> Im: goto Lb, logical
    OP_CLGIJ                // if R1 <Cc> Im: goto Lb, logical (64-bit)
    OP_CRB                  // if R1 <Cc> R2: goto D(B)
    OP_CGRB                 // if R1 <Cc> R2: goto D(B) (64-bit)
    OP_CLRB                 // if R1 <Cc> R2: goto D(B), logical
    OP_CLGRB                // if R1 <Cc> R2: goto D(B), logical (64-bit)
    OP_CRT                  // if R1 <Cc> R2: trap
    OP_CGRT                 // if R1 <Cc> R2: trap (64-bit)
    OP_CLRT                 // if R1 <M3> R2: trap, logical
    OP_CLGRT                // if R1 <M3> R2: trap, logical (64-bit)
    OP_LOCR                 // if CC in M3: R2 -> R1
    OP_LOCGR                // if CC in M3: R2 -> R1 (64-bit)
    OP_MADBR                // R1 + R3 * R2 -> R1
    OP_MSDBR                // R3 * R2 - R1 -> R1
    OP_BRC                  // if CC in Cc: goto Lb
    OP_BRCL                 // if CC in Cc: goto Lb (long)
    OP_BCR                  // if CC in Cc: goto R2
    OP_BRASL                // PC -> R1; goto Sym
    OP_BASR                 // PC -> R1; goto R2
    OP_L                    // *(*i32)D(X,B) -> R1
    OP_LG                   // *(*i64)D(X,B) -> R1
    OP_LD                   // *(*f64)D(X,B) -> R1
    OP_ST                   // R1 -> *(*i32)D(X,B)
    OP_STG                  // R1 -> *(*i64)D(X,B)
    OP_STD                  // R1 -> *(*f64)D(X,B)
    OP_LA                   // D(X,B) -> R1
    OP_LAY                  // D(X,B) -> R1 (long displacement)
    OP_LM                   // *D(B) -> R1 .. R3
    OP_LMG                  // *D(B) -> R1 .. R3 (64-bit)
    OP_STM                  // R1 .. R3 -> *D(B)
    OP_STMG                 // R1 .. R3 -> *D(B) (64-bit)
    OP_LARL                 // &Sym -> R1
    OP_TBEGIN               // begin transaction
    OP_TBEGINC              // begin constrained transaction
    OP_TEND                 // end transaction
    OP_TABORT               // abort transaction
    _OP_max
)

const (
    _S_rr   = S_r1 | S_r2
    _S_rrr  = S_r1 | S_r2 | S_r3
    _S_ri   = S_r1 | S_imm
    _S_rx   = S_r1 | S_mem
    _S_rrs  = S_r1 | S_r2 | S_mem
    _S_crj  = S_r1 | S_r2 | S_cond | S_label
    _S_cij  = S_r1 | S_imm | S_cond | S_label
    _S_crb  = S_r1 | S_r2 | S_cond | S_mem
    _S_lm   = S_r1 | S_r3 | S_mem
)

const (
    _P_arith  = P_setcc
    _P_logic  = P_setcc | P_carry
    _P_cmp    = P_setcc | P_cmpflag | P_compare
    _P_cab    = P_branch | P_compare
    _P_trap   = P_branch | P_xbranch | P_compare
    _P_jump   = P_branch | P_readcc
)

var _OpInfo = [_OP_max]Info {
    OP_LABEL     : { "LABEL"     , KindLabel       , S_label       , 0                            , D_none  },
    OP_FENCE     : { "FENCE"     , KindPseudo      , 0             , 0                            , D_none  },
    OP_BBSTART   : { "BBSTART"   , KindPseudo      , 0             , 0                            , D_none  },
    OP_BBEND     : { "BBEND"     , KindPseudo      , 0             , 0                            , D_none  },
    OP_DCB       : { "DCB"       , KindPseudo      , 0             , 0                            , D_none  },
    OP_ASSOCREGS : { "ASSOCREGS" , KindNotExtended , 0             , 0                            , D_none  },
    OP_DEPEND    : { "DEPEND"    , KindNotExtended , 0             , 0                            , D_none  },
    OP_LR        : { "LR"        , KindRR          , _S_rr         , P_g32                        , D_r1    },
    OP_LGR       : { "LGR"       , KindRR          , _S_rr         , P_g64                        , D_r1    },
    OP_LDR       : { "LDR"       , KindRR          , _S_rr         , P_g64                        , D_r1    },
    OP_CPYA      : { "CPYA"      , KindRR          , _S_rr         , P_g32                        , D_r1    },
    OP_LTR       : { "LTR"       , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_LTGR      : { "LTGR"      , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_LHR       : { "LHR"       , KindRR          , _S_rr         , P_g32                        , D_r1    },
    OP_LCR       : { "LCR"       , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_LCGR      : { "LCGR"      , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_LCGFR     : { "LCGFR"     , KindRRE         , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_LHI       : { "LHI"       , KindRI          , _S_ri         , P_g32                        , D_r1    },
    OP_LGHI      : { "LGHI"      , KindRI          , _S_ri         , P_g64                        , D_r1    },
    OP_CHI       : { "CHI"       , KindRI          , _S_ri         , P_g32 | _P_cmp               , D_none  },
    OP_CGHI      : { "CGHI"      , KindRI          , _S_ri         , P_g64 | _P_cmp               , D_none  },
    OP_AHI       : { "AHI"       , KindRI          , _S_ri         , P_g32 | _P_arith             , D_r1    },
    OP_AGHI      : { "AGHI"      , KindRI          , _S_ri         , P_g64 | _P_arith             , D_r1    },
    OP_AR        : { "AR"        , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_AGR       : { "AGR"       , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_ALR       : { "ALR"       , KindRR          , _S_rr         , P_g32 | _P_logic             , D_r1    },
    OP_ALGR      : { "ALGR"      , KindRR          , _S_rr         , P_g64 | _P_logic             , D_r1    },
    OP_SR        : { "SR"        , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_SGR       : { "SGR"       , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_SLR       : { "SLR"       , KindRR          , _S_rr         , P_g32 | _P_logic             , D_r1    },
    OP_SLGR      : { "SLGR"      , KindRR          , _S_rr         , P_g64 | _P_logic             , D_r1    },
    OP_NR        : { "NR"        , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_NGR       : { "NGR"       , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_OR        : { "OR"        , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_OGR       : { "OGR"       , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_XR        : { "XR"        , KindRR          , _S_rr         , P_g32 | _P_arith             , D_r1    },
    OP_XGR       : { "XGR"       , KindRR          , _S_rr         , P_g64 | _P_arith             , D_r1    },
    OP_DR        : { "DR"        , KindRR          , _S_rr         , P_g32                        , D_pair  },
    OP_DLR       : { "DLR"       , KindRR          , _S_rr         , P_g32                        , D_pair  },
    OP_DLGR      : { "DLGR"      , KindRR          , _S_rr         , P_g64                        , D_pair  },
    OP_ARK       : { "ARK"       , KindRRF         , _S_rrr        , P_g32 | _P_arith             , D_r1    },
    OP_AGRK      : { "AGRK"      , KindRRF         , _S_rrr        , P_g64 | _P_arith             , D_r1    },
    OP_ALRK      : { "ALRK"      , KindRRF         , _S_rrr        , P_g32 | _P_logic             , D_r1    },
    OP_ALGRK     : { "ALGRK"     , KindRRF         , _S_rrr        , P_g64 | _P_logic             , D_r1    },
    OP_SRK       : { "SRK"       , KindRRF         , _S_rrr        , P_g32 | _P_arith             , D_r1    },
    OP_SGRK      : { "SGRK"      , KindRRF         , _S_rrr        , P_g64 | _P_arith             , D_r1    },
    OP_SLRK      : { "SLRK"      , KindRRF         , _S_rrr        , P_g32 | _P_logic             , D_r1    },
    OP_SLGRK     : { "SLGRK"     , KindRRF         , _S_rrr        , P_g64 | _P_logic             , D_r1    },
    OP_NRK       : { "NRK"       , KindRRF         , _S_rrr        , P_g32 | _P_arith             , D_r1    },
    OP_NGRK      : { "NGRK"      , KindRRF         , _S_rrr        , P_g64 | _P_arith             , D_r1    },
    OP_ORK       : { "ORK"       , KindRRF         , _S_rrr        , P_g32 | _P_arith             , D_r1    },
    OP_OGRK      : { "OGRK"      , KindRRF         , _S_rrr        , P_g64 | _P_arith             , D_r1    },
    OP_XRK       : { "XRK"       , KindRRF         , _S_rrr        , P_g32 | _P_arith             , D_r1    },
    OP_XGRK      : { "XGRK"      , KindRRF         , _S_rrr        , P_g64 | _P_arith             , D_r1    },
    OP_AHIK      : { "AHIK"      , KindRIE         , _S_rr | S_imm , P_g32 | _P_arith             , D_r1    },
    OP_AGHIK     : { "AGHIK"     , KindRIE         , _S_rr | S_imm , P_g64 | _P_arith             , D_r1    },
    OP_SLL       : { "SLL"       , KindRS          , _S_rx         , P_g32                        , D_r1    },
    OP_SLA       : { "SLA"       , KindRS          , _S_rx         , P_g32 | _P_arith             , D_r1    },
    OP_SRA       : { "SRA"       , KindRS          , _S_rx         , P_g32 | _P_arith             , D_r1    },
    OP_SRL       : { "SRL"       , KindRS          , _S_rx         , P_g32                        , D_r1    },
    OP_SLLK      : { "SLLK"      , KindRS          , _S_rrs        , P_g32                        , D_r1    },
    OP_SLAK      : { "SLAK"      , KindRS          , _S_rrs        , P_g32 | _P_arith             , D_r1    },
    OP_SRAK      : { "SRAK"      , KindRS          , _S_rrs        , P_g32 | _P_arith             , D_r1    },
    OP_SRLK      : { "SRLK"      , KindRS          , _S_rrs        , P_g32                        , D_r1    },
    OP_CR        : { "CR"        , KindRR          , _S_rr         , P_g32 | _P_cmp               , D_none  },
    OP_CGR       : { "CGR"       , KindRR          , _S_rr         , P_g64 | _P_cmp               , D_none  },
    OP_CLR       : { "CLR"       , KindRR          , _S_rr         , P_g32 | _P_cmp               , D_none  },
    OP_CLGR      : { "CLGR"      , KindRR          , _S_rr         , P_g64 | _P_cmp               , D_none  },
    OP_CGFR      : { "CGFR"      , KindRRE         , _S_rr         , P_g64 | _P_cmp               , D_none  },
    OP_CLGFR     : { "CLGFR"     , KindRRE         , _S_rr         , P_g64 | _P_cmp               , D_none  },
    OP_CHLR      : { "CHLR"      , KindRRE         , _S_rr         , P_g32 | _P_cmp               , D_none  },
    OP_CLHLR     : { "CLHLR"     , KindRRE         , _S_rr         , P_g32 | _P_cmp               , D_none  },
    OP_CRJ       : { "CRJ"       , KindRIE         , _S_crj        , P_g32 | _P_cab               , D_none  },
    OP_CGRJ      : { "CGRJ"      , KindRIE         , _S_crj        , P_g64 | _P_cab               , D_none  },
    OP_CLRJ      : { "CLRJ"      , KindRIE         , _S_crj        , P_g32 | _P_cab               , D_none  },
    OP_CLGRJ     : { "CLGRJ"     , KindRIE         , _S_crj        , P_g64 | _P_cab               , D_none  },
    OP_CIJ       : { "CIJ"       , KindRIE         , _S_cij        , P_g32 | _P_cab               , D_none  },
    OP_CGIJ      : { "CGIJ"      , KindRIE         , _S_cij        , P_g64 | _P_cab               , D_none  },
    OP_CLIJ      : { "CLIJ"      , KindRIE         , _S_cij        , P_g32 | _P_cab               , D_none  },
    OP_CLGIJ     : { "CLGIJ"     , KindRIE         , _S_cij        , P_g64 | _P_cab               , D_none  },
    OP_CRB       : { "CRB"       , KindRRS         , _S_crb        , P_g32 | _P_cab               , D_none  },
    OP_CGRB      : { "CGRB"      , KindRRS         , _S_crb        , P_g64 | _P_cab               , D_none  },
    OP_CLRB      : { "CLRB"      , KindRRS         , _S_crb        , P_g32 | _P_cab               , D_none  },
    OP_CLGRB     : { "CLGRB"     , KindRRS         , _S_crb        , P_g64 | _P_cab               , D_none  },
    OP_CRT       : { "CRT"       , KindRRF         , _S_rr | S_cond, P_g32 | _P_trap              , D_none  },
    OP_CGRT      : { "CGRT"      , KindRRF         , _S_rr | S_cond, P_g64 | _P_trap              , D_none  },
    OP_CLRT      : { "CLRT"      , KindRRF2        , _S_rr | S_mask, P_g32 | _P_trap              , D_none  },
    OP_CLGRT     : { "CLGRT"     , KindRRF2        , _S_rr | S_mask, P_g64 | _P_trap              , D_none  },
    OP_LOCR      : { "LOCR"      , KindRRF2        , _S_rr | S_mask, P_g32 | P_readcc             , D_r1    },
    OP_LOCGR     : { "LOCGR"     , KindRRF2        , _S_rr | S_mask, P_g64 | P_readcc             , D_r1    },
    OP_MADBR     : { "MADBR"     , KindRRD         , _S_rrr        , P_g64                        , D_r1    },
    OP_MSDBR     : { "MSDBR"     , KindRRD         , _S_rrr        , P_g64                        , D_r1    },
    OP_BRC       : { "BRC"       , KindBranch      , S_cond|S_label, _P_jump                      , D_none  },
    OP_BRCL      : { "BRCL"      , KindRIL         , S_cond|S_label, _P_jump                      , D_none  },
    OP_BCR       : { "BCR"       , KindRR          , S_cond | S_r2 , _P_jump                      , D_none  },
    OP_BRASL     : { "BRASL"     , KindRIL         , S_r1 | S_sym  , P_call | P_g64               , D_r1    },
    OP_BASR      : { "BASR"      , KindRR          , _S_rr         , P_call | P_g64               , D_r1    },
    OP_L         : { "L"         , KindRX          , _S_rx         , P_g32 | P_load               , D_r1    },
    OP_LG        : { "LG"        , KindRX          , _S_rx         , P_g64 | P_load               , D_r1    },
    OP_LD        : { "LD"        , KindRX          , _S_rx         , P_g64 | P_load               , D_r1    },
    OP_ST        : { "ST"        , KindRX          , _S_rx         , P_g32 | P_store              , D_none  },
    OP_STG       : { "STG"       , KindRX          , _S_rx         , P_g64 | P_store              , D_none  },
    OP_STD       : { "STD"       , KindRX          , _S_rx         , P_g64 | P_store              , D_none  },
    OP_LA        : { "LA"        , KindRX          , _S_rx         , P_g64 | P_load               , D_r1    },
    OP_LAY       : { "LAY"       , KindRX          , _S_rx         , P_g64 | P_load               , D_r1    },
    OP_LM        : { "LM"        , KindRS          , _S_lm         , P_g32 | P_load               , D_range },
    OP_LMG       : { "LMG"       , KindRS          , _S_lm         , P_g64 | P_load               , D_range },
    OP_STM       : { "STM"       , KindRS          , _S_lm         , P_g32 | P_store              , D_none  },
    OP_STMG      : { "STMG"      , KindRS          , _S_lm         , P_g64 | P_store              , D_none  },
    OP_LARL      : { "LARL"      , KindRIL         , S_r1 | S_sym  , P_g64                        , D_r1    },
    OP_TBEGIN    : { "TBEGIN"    , KindS           , S_mem | S_imm , P_txn | P_setcc              , D_none  },
    OP_TBEGINC   : { "TBEGINC"   , KindS           , S_mem | S_imm , P_txn | P_setcc              , D_none  },
    OP_TEND      : { "TEND"      , KindS           , 0             , P_txn | P_setcc              , D_none  },
    OP_TABORT    : { "TABORT"    , KindS           , S_mem         , P_txn                        , D_none  },
}

// OpByName looks up an opcode by its mnemonic.
func OpByName(name string) (OpCode, bool) {
    for i := OpCode(0); i < _OP_max; i++ {
        if _OpInfo[i].Name == name {
            return i, true
        }
    }
    return 0, false
}

func (self OpCode) Valid() bool {
    return self < _OP_max
}

func (self OpCode) Info() *Info {
    if self >= _OP_max {
        panic(fmt.Sprintf("isa: invalid opcode %d", uint8(self)))
    } else {
        return &_OpInfo[self]
    }
}

func (self OpCode) String() string {
    if self < _OP_max {
        return _OpInfo[self].Name
    } else {
        return fmt.Sprintf("OpCode(%d)", uint8(self))
    }
}

func (self OpCode) Kind()  Kind  { return self.Info().Kind }
func (self OpCode) Shape() Shape { return self.Info().Shape }

func (self OpCode) Has(s Shape) bool { return self.Info().Shape & s == s }
func (self OpCode) Is(p Props)  bool { return self.Info().Props & p != 0 }

func (self OpCode) SetsCC()          bool { return self.Is(P_setcc) }
func (self OpCode) ReadsCC()         bool { return self.Is(P_readcc) }
func (self OpCode) SetsCompareFlag() bool { return self.Is(P_cmpflag) }
func (self OpCode) SetsCarry()       bool { return self.Is(P_carry) }
func (self OpCode) IsBranch()        bool { return self.Is(P_branch) }
func (self OpCode) IsExceptBranch()  bool { return self.Is(P_xbranch) }
func (self OpCode) IsCall()          bool { return self.Is(P_call) }
func (self OpCode) IsLoad()          bool { return self.Is(P_load) }
func (self OpCode) IsStore()         bool { return self.Is(P_store) }
func (self OpCode) IsCompare()       bool { return self.Is(P_compare) }
func (self OpCode) IsTransactional() bool { return self.Is(P_txn) }
func (self OpCode) Is32()            bool { return self.Is(P_g32) }
func (self OpCode) Is64()            bool { return self.Is(P_g64) }
