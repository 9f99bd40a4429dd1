/* Copyright (c) 2024 the varia8 authors
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

package chip8

import "math/rand"

const (
	schipMemory = 0x10000
	schipW      = 128
	schipH      = 64

	schipCPFLores = 30
	schipCPFHires = 45

	schipResMult = 4
)

// SCHIP is the SCHIP-LEGACY dialect: the HP48 superchip with its original
// timing warts. The bitmap is always 128x64; low resolution mode draws
// sprites scaled to 2x2 pixel blocks.
type SCHIP struct {
	m      *Machine
	video  VideoSink
	voices [4]Voice
	hires  bool
}

// NewSCHIP builds the .sc8 core.
func NewSCHIP(rom []byte, cfg Config) (Core, error) {
	if err := validateProgram(rom, schipMemory); err != nil {
		return nil, err
	}

	m := newMachine(schipMemory, 0xFFFF)
	m.loadProgram(rom)
	m.loadFonts()
	m.FB = newPlane(schipW, schipH)
	m.UseTrails = cfg.Trails

	// legacy SCHIP shifts VX in place and bumps I by N on FN55/FN65
	m.Quirks.ShiftVX = true
	m.Quirks.IdxRegMinus = true

	c := &SCHIP{m: m, video: cfg.video()}
	for i := range c.voices {
		c.voices[i].SetFreq(buzzerFreq, float64(cfg.SampleRate), cfg.rateMult())
	}

	c.video.SetViewport(schipW, schipH, schipResMult, 2)
	c.prepDisplay(ResLO)

	return c, nil
}

func (c *SCHIP) Name() string {
	return "SCHIP-LEGACY"
}

func (c *SCHIP) Machine() *Machine {
	return c.m
}

// prepDisplay switches the resolution mode: low-res draws wait on vblank,
// high-res runs free with a bigger cycle budget.
func (c *SCHIP) prepDisplay(mode Resolution) {
	c.hires = mode != ResLO

	c.m.Quirks.WaitVBlank = !c.hires
	if c.hires {
		c.m.TargetCPF = schipCPFHires
	} else {
		c.m.TargetCPF = schipCPFLores
	}
}

func (c *SCHIP) Cycle() {
	m := c.m
	hi, lo := m.fetch()

	nnn := uint32(hi&0xF)<<8 | uint32(lo)
	x := int(hi & 0xF)
	y := int(lo >> 4)
	n := int(lo & 0xF)

	switch {
	case hi == 0x00:
		switch {
		case lo>>4 == 0xC:
			m.FB.Shift(0, n)
		case lo == 0xE0:
			m.interrupt(IntFrame)
			m.FB.Clear()
		case lo == 0xEE:
			m.pop()
		case lo == 0xFB:
			m.FB.Shift(4, 0)
		case lo == 0xFC:
			m.FB.Shift(-4, 0)
		case lo == 0xFD:
			m.interrupt(IntSound)
		case lo == 0xFE:
			m.interrupt(IntFrame)
			c.prepDisplay(ResLO)
		case lo == 0xFF:
			m.interrupt(IntFrame)
			c.prepDisplay(ResHI)
		default:
			m.badOpcode(hi, lo)
		}
	case hi>>4 == 0x1:
		m.jump(nnn)
	case hi>>4 == 0x2:
		m.push()
		m.jump(nnn)
	case hi>>4 == 0x3:
		if m.V[x] == lo {
			m.PC += 2
		}
	case hi>>4 == 0x4:
		if m.V[x] != lo {
			m.PC += 2
		}
	case hi>>4 == 0x5:
		if n != 0 {
			m.badOpcode(hi, lo)
			break
		}
		if m.V[x] == m.V[y] {
			m.PC += 2
		}
	case hi>>4 == 0x6:
		m.V[x] = lo
	case hi>>4 == 0x7:
		m.V[x] += lo
	case hi>>4 == 0x8:
		switch lo & 0xF {
		case 0x0:
			m.V[x] = m.V[y]
		case 0x1:
			m.V[x] |= m.V[y]
		case 0x2:
			m.V[x] &= m.V[y]
		case 0x3:
			m.V[x] ^= m.V[y]
		case 0x4:
			m.aluAdd(x, y)
		case 0x5:
			m.aluSubXY(x, y)
		case 0x6:
			m.aluShr(x, y)
		case 0x7:
			m.aluSubYX(x, y)
		case 0xE:
			m.aluShl(x, y)
		default:
			m.badOpcode(hi, lo)
		}
	case hi>>4 == 0x9:
		if n != 0 {
			m.badOpcode(hi, lo)
			break
		}
		if m.V[x] != m.V[y] {
			m.PC += 2
		}
	case hi>>4 == 0xA:
		m.setI(nnn)
	case hi>>4 == 0xB:
		// the HP48 interpreter indexed the jump with VX, not V0
		m.jump(nnn + uint32(m.V[x]))
	case hi>>4 == 0xC:
		m.V[x] = byte(rand.Intn(256)) & lo
	case hi>>4 == 0xD:
		c.drawSprite(x, y, n)
	case hi>>4 == 0xE:
		switch lo {
		case 0x9E:
			if m.keyHeld(0, m.V[x]) {
				m.PC += 2
			}
		case 0xA1:
			if !m.keyHeld(0, m.V[x]) {
				m.PC += 2
			}
		default:
			m.badOpcode(hi, lo)
		}
	case hi>>4 == 0xF:
		switch lo {
		case 0x07:
			m.V[x] = m.Delay
		case 0x0A:
			m.waitKey(x)
		case 0x15:
			m.Delay = m.V[x]
		case 0x18:
			c.voices[voiceBuzzer].Start(m.V[x])
		case 0x1E:
			m.addI(uint32(m.V[x]))
		case 0x29:
			m.setI(smallFontAddr(m.V[x]))
		case 0x30:
			m.setI(largeFontAddr(m.V[x]))
		case 0x33:
			m.storeBCD(x)
		case 0x55:
			m.storeRegs(x)
		case 0x65:
			m.loadRegs(x)
		case 0x75:
			m.setPermaRegs(minInt(x, 7) + 1)
		case 0x85:
			m.getPermaRegs(minInt(x, 7) + 1)
		default:
			m.badOpcode(hi, lo)
		}
	default:
		m.badOpcode(hi, lo)
	}
}

// drawSingleBytes XORs a pre-shifted row of up to `width` bits at the
// given origin, clipping at the right edge. Reports whether any lit pixel
// was toggled off.
func (c *SCHIP) drawSingleBytes(originX, originY, width int, data uint32) bool {
	if data == 0 {
		return false
	}

	fb := c.m.FB
	collided := false

	for b := 0; b < width; b++ {
		offX := originX + b

		if data>>(width-1-b)&0x1 != 0 {
			if fb.xorPixel(offX, originY, 0x8) {
				collided = true
			}
		}
		if offX == schipW-1 {
			return collided
		}
	}
	return collided
}

// drawDoubleBytes draws one low-res sprite row as two bitmap rows,
// duplicating the top row's attributes into the bottom one.
func (c *SCHIP) drawDoubleBytes(originX, originY, width int, data uint32) bool {
	if data == 0 {
		return false
	}

	fb := c.m.FB
	collided := false

	for b := 0; b < width; b++ {
		offX := originX + b
		pix := fb.At(offX, originY)

		if data>>(width-1-b)&0x1 != 0 {
			if pix&0x8 != 0 {
				collided = true
			}
			pix ^= 0x8
			fb.set(offX, originY, pix)
		}
		fb.set(offX, originY+1, pix)

		if offX == schipW-1 {
			return collided
		}
	}
	return collided
}

// drawSprite implements DxyN. High-res mode draws natively and counts
// colliding rows into VF; low-res scales everything to 2x2 blocks and
// reports a boolean collision.
func (c *SCHIP) drawSprite(x, y, n int) {
	m := c.m
	if m.Quirks.WaitVBlank {
		m.interrupt(IntFrame)
	}

	if c.hires {
		shift := 8 - (int(m.V[x]) & 7)
		originX := int(m.V[x]) & 0x78
		originY := int(m.V[y]) & 0x3F

		collisions := 0

		if n == 0 {
			for row := 0; row < 16; row++ {
				offY := originY + row
				data := uint32(m.ReadI(uint32(2*row)))<<8 | uint32(m.ReadI(uint32(2*row+1)))

				if c.drawSingleBytes(originX, offY, 24, data<<shift) {
					collisions++
				}
				if offY == schipH-1 {
					break
				}
			}
		} else {
			for row := 0; row < n; row++ {
				offY := originY + row

				if c.drawSingleBytes(originX, offY, 16, uint32(m.ReadI(uint32(row)))<<shift) {
					collisions++
				}
				if offY == schipH-1 {
					break
				}
			}
		}
		m.V[0xF] = byte(collisions)
		return
	}

	shift := 16 - 2*(int(m.V[x])&0x7)
	originX := int(m.V[x]) * 2 & 0x70
	originY := int(m.V[y]) * 2 & 0x3F

	length := n
	if length == 0 {
		length = 16
	}

	collided := false
	for row := 0; row < length; row++ {
		offY := originY + row*2

		if c.drawDoubleBytes(originX, offY, 32, bitDup8(m.ReadI(uint32(row)))<<shift) {
			collided = true
		}
		if offY == schipH-2 {
			break
		}
	}
	m.V[0xF] = flag(collided)
}

func (c *SCHIP) anyAudio() bool {
	for i := range c.voices {
		if c.voices[i].Active() {
			return true
		}
	}
	return false
}

func (c *SCHIP) RenderVideo() {
	c.video.SetBorderColor(bitColors[flag(c.anyAudio())])
	writeMonoFrame(c.video, c.m.FB, c.m.UseTrails)
}

func (c *SCHIP) RenderAudio(buf []float32) {
	zeroSamples(buf)
	for i := range c.voices {
		c.voices[i].RenderPulse(buf)
	}
}

func (c *SCHIP) TickTimers() {
	c.m.tickDelay()
	for i := range c.voices {
		c.voices[i].Tick()
	}
}
