package cpu

// opFunc executes one decoded primary-table instruction and returns the
// number of CPU cycles it consumed.
type opFunc func(c *CPU) int

var primaryTable [256]opFunc

func init() {
	for i := range primaryTable {
		primaryTable[i] = opUnimplemented
	}

	primaryTable[0x00] = opNop
	primaryTable[0x10] = opStop
	primaryTable[0x76] = opHalt
	primaryTable[0xF3] = opDI
	primaryTable[0xFB] = opEI
	primaryTable[0x07] = opRLCA
	primaryTable[0x0F] = opRRCA
	primaryTable[0x17] = opRLA
	primaryTable[0x1F] = opRRA
	primaryTable[0x27] = opDAA
	primaryTable[0x2F] = opCPL
	primaryTable[0x37] = opSCF
	primaryTable[0x3F] = opCCF
	primaryTable[0xCB] = opCBPrefix

	primaryTable[0x08] = opLDAddrSP
	primaryTable[0xE0] = opLDHAnA
	primaryTable[0xF0] = opLDHAAn
	primaryTable[0xE2] = opLDAddrCA
	primaryTable[0xF2] = opLDAAddrC
	primaryTable[0xEA] = opLDAddrNNA
	primaryTable[0xFA] = opLDAAddrNN
	primaryTable[0xE8] = opAddSPe8
	primaryTable[0xF8] = opLDHLSPe8
	primaryTable[0xF9] = opLDSPHL

	primaryTable[0xC3] = opJPnn
	primaryTable[0xE9] = opJPHL
	primaryTable[0x18] = opJRe8
	primaryTable[0xCD] = opCALLnn
	primaryTable[0xC9] = opRET
	primaryTable[0xD9] = opRETI

	for i, cond := range []struct {
		opJP, opJR, opCALL, opRET byte
		fn                        func(c *CPU) bool
	}{
		{0xC2, 0x20, 0xC4, 0xC0, func(c *CPU) bool { return !c.getFlag(FlagZ) }},
		{0xCA, 0x28, 0xCC, 0xC8, func(c *CPU) bool { return c.getFlag(FlagZ) }},
		{0xD2, 0x30, 0xD4, 0xD0, func(c *CPU) bool { return !c.getFlag(FlagC) }},
		{0xDA, 0x38, 0xDC, 0xD8, func(c *CPU) bool { return c.getFlag(FlagC) }},
	} {
		cond := cond
		_ = i
		primaryTable[cond.opJP] = func(c *CPU) int { return jpCond(c, cond.fn) }
		primaryTable[cond.opJR] = func(c *CPU) int { return jrCond(c, cond.fn) }
		primaryTable[cond.opCALL] = func(c *CPU) int { return callCond(c, cond.fn) }
		primaryTable[cond.opRET] = func(c *CPU) int { return retCond(c, cond.fn) }
	}

	for n := 0; n < 8; n++ {
		vec := uint16(n) * 8
		primaryTable[0xC7+byte(n)*8] = func(c *CPU) int {
			c.push16(c.PC)
			c.PC = vec
			return 16
		}
	}

	rp16 := []struct {
		get func(c *CPU) uint16
		set func(c *CPU, v uint16)
	}{
		{func(c *CPU) uint16 { return c.getBC() }, func(c *CPU, v uint16) { c.setBC(v) }},
		{func(c *CPU) uint16 { return c.getDE() }, func(c *CPU, v uint16) { c.setDE(v) }},
		{func(c *CPU) uint16 { return c.getHL() }, func(c *CPU, v uint16) { c.setHL(v) }},
		{func(c *CPU) uint16 { return c.SP }, func(c *CPU, v uint16) { c.SP = v }},
	}
	for i, rp := range rp16 {
		rp := rp
		base := byte(i) * 0x10
		primaryTable[base+0x01] = func(c *CPU) int { rp.set(c, c.fetch16()); return 12 }
		primaryTable[base+0x03] = func(c *CPU) int { rp.set(c, rp.get(c)+1); return 8 }
		primaryTable[base+0x0B] = func(c *CPU) int { rp.set(c, rp.get(c)-1); return 8 }
		primaryTable[base+0x09] = func(c *CPU) int { c.addHL(rp.get(c)); return 8 }
	}

	pushPop := []struct {
		get func(c *CPU) uint16
		set func(c *CPU, v uint16)
	}{
		{func(c *CPU) uint16 { return c.getBC() }, func(c *CPU, v uint16) { c.setBC(v) }},
		{func(c *CPU) uint16 { return c.getDE() }, func(c *CPU, v uint16) { c.setDE(v) }},
		{func(c *CPU) uint16 { return c.getHL() }, func(c *CPU, v uint16) { c.setHL(v) }},
		{func(c *CPU) uint16 { return c.getAF() }, func(c *CPU, v uint16) { c.setAF(v) }},
	}
	for i, pp := range pushPop {
		pp := pp
		base := byte(i) * 0x10
		primaryTable[0xC1+base] = func(c *CPU) int { pp.set(c, c.pop16()); return 12 }
		primaryTable[0xC5+base] = func(c *CPU) int { c.push16(pp.get(c)); return 16 }
	}

	indirectLoad := []struct {
		addr byte
		get  func(c *CPU) uint16
	}{
		{0x02, func(c *CPU) uint16 { return c.getBC() }},
		{0x12, func(c *CPU) uint16 { return c.getDE() }},
		{0x22, func(c *CPU) uint16 { v := c.getHL(); c.setHL(v + 1); return v }},
		{0x32, func(c *CPU) uint16 { v := c.getHL(); c.setHL(v - 1); return v }},
	}
	for _, il := range indirectLoad {
		il := il
		primaryTable[il.addr] = func(c *CPU) int { c.write8(il.get(c), c.A); return 8 }
		primaryTable[il.addr+0x08] = func(c *CPU) int { c.A = c.read8(il.get(c)); return 8 }
	}

	for r := 0; r < 8; r++ {
		r := r
		primaryTable[0x06+byte(r)*8] = func(c *CPU) int {
			c.setReg8(r, c.fetch8())
			if r == 6 {
				return 12
			}
			return 8
		}
		primaryTable[0x04+byte(r)*8] = func(c *CPU) int {
			c.setReg8(r, c.aluInc(c.getReg8(r)))
			if r == 6 {
				return 12
			}
			return 4
		}
		primaryTable[0x05+byte(r)*8] = func(c *CPU) int {
			c.setReg8(r, c.aluDec(c.getReg8(r)))
			if r == 6 {
				return 12
			}
			return 4
		}
	}

	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			opcode := byte(0x40 + dst*8 + src)
			if opcode == 0x76 {
				continue // HALT occupies this slot instead of LD (HL),(HL)
			}
			dst, src := dst, src
			primaryTable[opcode] = func(c *CPU) int {
				c.setReg8(dst, c.getReg8(src))
				if dst == 6 || src == 6 {
					return 8
				}
				return 4
			}
		}
	}

	aluFamilies := []struct {
		base byte
		fn   func(c *CPU, v byte)
	}{
		{0x80, func(c *CPU, v byte) { c.A = c.aluAdd(c.A, v) }},
		{0x88, func(c *CPU, v byte) { c.A = c.aluAdc(c.A, v) }},
		{0x90, func(c *CPU, v byte) { c.A = c.aluSub(c.A, v) }},
		{0x98, func(c *CPU, v byte) { c.A = c.aluSbc(c.A, v) }},
		{0xA0, func(c *CPU, v byte) { c.A = c.aluAnd(c.A, v) }},
		{0xA8, func(c *CPU, v byte) { c.A = c.aluXor(c.A, v) }},
		{0xB0, func(c *CPU, v byte) { c.A = c.aluOr(c.A, v) }},
		{0xB8, func(c *CPU, v byte) { c.aluCp(c.A, v) }},
	}
	for _, fam := range aluFamilies {
		fam := fam
		for r := 0; r < 8; r++ {
			r := r
			primaryTable[fam.base+byte(r)] = func(c *CPU) int {
				fam.fn(c, c.getReg8(r))
				if r == 6 {
					return 8
				}
				return 4
			}
		}
		immOpcode := fam.base + 0x46
		primaryTable[immOpcode] = func(c *CPU) int {
			fam.fn(c, c.fetch8())
			return 8
		}
	}
}

func opNop(c *CPU) int  { return 4 }
func opStop(c *CPU) int { c.fetch8(); return 4 }
func opHalt(c *CPU) int { c.halted = true; return 4 }
func opDI(c *CPU) int   { c.ime = false; c.imePending = false; return 4 }
func opEI(c *CPU) int   { c.imePending = true; return 4 }

func opRLCA(c *CPU) int {
	c.A = c.rlc(c.A)
	c.setFlag(FlagZ, false)
	return 4
}
func opRRCA(c *CPU) int {
	c.A = c.rrc(c.A)
	c.setFlag(FlagZ, false)
	return 4
}
func opRLA(c *CPU) int {
	c.A = c.rl(c.A)
	c.setFlag(FlagZ, false)
	return 4
}
func opRRA(c *CPU) int {
	c.A = c.rr(c.A)
	c.setFlag(FlagZ, false)
	return 4
}

func opDAA(c *CPU) int { c.daa(); return 4 }
func opCPL(c *CPU) int {
	c.A = ^c.A
	c.setFlag(FlagN, true)
	c.setFlag(FlagH, true)
	return 4
}
func opSCF(c *CPU) int {
	c.setFlag(FlagN, false)
	c.setFlag(FlagH, false)
	c.setFlag(FlagC, true)
	return 4
}
func opCCF(c *CPU) int {
	c.setFlag(FlagN, false)
	c.setFlag(FlagH, false)
	c.setFlag(FlagC, !c.getFlag(FlagC))
	return 4
}

func opLDAddrSP(c *CPU) int {
	addr := c.fetch16()
	c.write16(addr, c.SP)
	return 20
}
func opLDHAnA(c *CPU) int { c.write8(0xFF00+uint16(c.fetch8()), c.A); return 12 }
func opLDHAAn(c *CPU) int { c.A = c.read8(0xFF00 + uint16(c.fetch8())); return 12 }
func opLDAddrCA(c *CPU) int { c.write8(0xFF00+uint16(c.C), c.A); return 8 }
func opLDAAddrC(c *CPU) int { c.A = c.read8(0xFF00 + uint16(c.C)); return 8 }
func opLDAddrNNA(c *CPU) int { c.write8(c.fetch16(), c.A); return 16 }
func opLDAAddrNN(c *CPU) int { c.A = c.read8(c.fetch16()); return 16 }
func opAddSPe8(c *CPU) int {
	c.SP = c.addSPSigned(c.fetch8())
	return 16
}
func opLDHLSPe8(c *CPU) int {
	c.setHL(c.addSPSigned(c.fetch8()))
	return 12
}
func opLDSPHL(c *CPU) int { c.SP = c.getHL(); return 8 }

func opJPnn(c *CPU) int { c.PC = c.fetch16(); return 16 }
func opJPHL(c *CPU) int { c.PC = c.getHL(); return 4 }
func opJRe8(c *CPU) int {
	e := int8(c.fetch8())
	c.PC = uint16(int32(c.PC) + int32(e))
	return 12
}
func opCALLnn(c *CPU) int {
	addr := c.fetch16()
	c.push16(c.PC)
	c.PC = addr
	return 24
}
func opRET(c *CPU) int  { c.PC = c.pop16(); return 16 }
func opRETI(c *CPU) int { c.PC = c.pop16(); c.ime = true; return 16 }

func jpCond(c *CPU, cond func(c *CPU) bool) int {
	addr := c.fetch16()
	if cond(c) {
		c.PC = addr
		return 16
	}
	return 12
}

func jrCond(c *CPU, cond func(c *CPU) bool) int {
	e := int8(c.fetch8())
	if cond(c) {
		c.PC = uint16(int32(c.PC) + int32(e))
		return 12
	}
	return 8
}

func callCond(c *CPU, cond func(c *CPU) bool) int {
	addr := c.fetch16()
	if cond(c) {
		c.push16(c.PC)
		c.PC = addr
		return 24
	}
	return 12
}

func retCond(c *CPU, cond func(c *CPU) bool) int {
	if cond(c) {
		c.PC = c.pop16()
		return 20
	}
	return 8
}

func opCBPrefix(c *CPU) int {
	opcode := c.fetch8()
	return cbTable[opcode](c)
}

func opUnimplemented(c *CPU) int {
	// Every primary opcode slot is populated in init(); reaching this means
	// a decoding bug, not a guest-program error.
	panic("cpu: unpopulated primary opcode slot")
}
