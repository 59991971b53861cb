package cpu

// cbTable holds the 256 CB-prefixed opcodes: rotates/shifts/swap (0x00-0x3F),
// BIT (0x40-0x7F), RES (0x80-0xBF), SET (0xC0-0xFF), each laid out as an
// 8-register x 8-op/bit grid over the same B,C,D,E,H,L,(HL),A operand order
// as the primary table.
var cbTable [256]opFunc

func init() {
	rotateOps := []func(c *CPU, v byte) byte{
		(*CPU).rlc,
		(*CPU).rrc,
		(*CPU).rl,
		(*CPU).rr,
		(*CPU).sla,
		(*CPU).sra,
		(*CPU).swap,
		(*CPU).srl,
	}
	for row, op := range rotateOps {
		row, op := row, op
		for r := 0; r < 8; r++ {
			r := r
			cbTable[byte(row)*8+byte(r)] = func(c *CPU) int {
				res := op(c, c.getReg8(r))
				c.setReg8(r, res)
				if r == 6 {
					return 16
				}
				return 8
			}
		}
	}

	for n := 0; n < 8; n++ {
		n := n
		for r := 0; r < 8; r++ {
			r := r
			cbTable[0x40+byte(n)*8+byte(r)] = func(c *CPU) int {
				c.bit(uint(n), c.getReg8(r))
				if r == 6 {
					return 12
				}
				return 8
			}
			cbTable[0x80+byte(n)*8+byte(r)] = func(c *CPU) int {
				c.setReg8(r, c.getReg8(r)&^(1<<uint(n)))
				if r == 6 {
					return 16
				}
				return 8
			}
			cbTable[0xC0+byte(n)*8+byte(r)] = func(c *CPU) int {
				c.setReg8(r, c.getReg8(r)|(1<<uint(n)))
				if r == 6 {
					return 16
				}
				return 8
			}
		}
	}
}
