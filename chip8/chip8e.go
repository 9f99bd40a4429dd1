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
	c8eMemory = 0x4000
	c8eW      = 64
	c8eH      = 32

	c8eCPFVBlank = 30
	c8eCPFFree   = 15

	c8eResMult = 8
)

// CHIP8E is the CHIP-8E dialect: the base set with extra control flow
// (relative jumps, skip-ahead), ranged memory transfers and delay waits.
type CHIP8E struct {
	m      *Machine
	video  VideoSink
	voices [4]Voice
}

// NewCHIP8E builds the .c8e core.
func NewCHIP8E(rom []byte, cfg Config) (Core, error) {
	if err := validateProgram(rom, c8eMemory); err != nil {
		return nil, err
	}

	m := newMachine(c8eMemory, 0xFFF)
	m.loadProgram(rom)
	m.loadSmallFont()
	m.FB = newPlane(c8eW, c8eH)
	m.UseTrails = cfg.Trails
	m.Quirks.WaitVBlank = true
	m.TargetCPF = c8eCPFVBlank

	c := &CHIP8E{m: m, video: cfg.video()}
	for i := range c.voices {
		c.voices[i].SetFreq(buzzerFreq, float64(cfg.SampleRate), cfg.rateMult())
	}

	c.video.SetViewport(c8eW, c8eH, c8eResMult, 2)

	return c, nil
}

func (c *CHIP8E) Name() string {
	return "CHIP-8E"
}

func (c *CHIP8E) Machine() *Machine {
	return c.m
}

func (c *CHIP8E) Cycle() {
	m := c.m
	hi, lo := m.fetch()

	nnn := uint32(hi&0xF)<<8 | uint32(lo)
	x := int(hi & 0xF)
	y := int(lo >> 4)
	n := int(lo & 0xF)

	switch {
	case hi == 0x00:
		switch lo {
		case 0xE0:
			m.interrupt(IntFrame)
			m.FB.Clear()
		case 0xEE:
			m.pop()
		case 0xED:
			// 00ED stops the RCA 1861 in hardware; halt emulation
			m.interrupt(IntSound)
		case 0xF2:
			// no operation
		default:
			m.badOpcode(hi, lo)
		}
	case hi == 0x01:
		switch lo {
		case 0x51:
			m.interrupt(IntDelay)
		case 0x88:
			// documented ambiguously; treated as a plain skip
			m.PC += 2
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
		switch n {
		case 0x0:
			if m.V[x] == m.V[y] {
				m.PC += 2
			}
		case 0x1:
			if m.V[x] > m.V[y] {
				m.PC += 2
			}
		case 0x2:
			// store Vx..Vy ascending; I walks forward
			for z := 0; z+x <= y; z++ {
				m.WriteI(0, m.V[z+x])
				m.I = (m.I + 1) & 0xFFF
			}
		case 0x3:
			// load Vx..Vy ascending; I walks forward
			for z := 0; z+x <= y; z++ {
				m.V[z+x] = m.ReadI(0)
				m.I = (m.I + 1) & 0xFFF
			}
		default:
			m.badOpcode(hi, lo)
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
	case hi == 0xBB:
		// relative jump: NN+2 bytes behind this opcode (PC has advanced)
		m.jump(m.PC - 4 - uint32(lo))
	case hi == 0xBF:
		// relative jump: NN-2 bytes ahead of this opcode
		m.jump(m.PC - 4 + uint32(lo))
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
		case 0x03:
			m.interrupt(IntFrame)
		case 0x07:
			m.V[x] = m.Delay
		case 0x0A:
			m.waitKey(x)
		case 0x15:
			m.Delay = m.V[x]
		case 0x18:
			c.voices[voiceBuzzer].Start(m.V[x])
		case 0x1B:
			m.PC += uint32(m.V[x])
		case 0x1E:
			m.I = (m.I + uint32(m.V[x])) & 0xFFF
		case 0x29:
			m.setI(smallFontAddr(m.V[x]))
		case 0x33:
			m.storeBCD(x)
		case 0x4F:
			m.interrupt(IntDelay)
			m.Delay = m.V[x]
		case 0x55:
			m.storeRegs(x)
		case 0x65:
			m.loadRegs(x)
		case 0xE3, 0xE7:
			// I/O handshakes on the original hardware; a frame wait here
			m.interrupt(IntFrame)
		default:
			m.badOpcode(hi, lo)
		}
	default:
		m.badOpcode(hi, lo)
	}
}

func (c *CHIP8E) drawByte(x, y int, data byte) {
	m := c.m
	if data == 0 {
		return
	}

	if m.Quirks.WrapSprite {
		x &= c8eW - 1
	} else if x >= c8eW {
		return
	}

	for b := 0; b < 8; b++ {
		if data&(0x80>>b) != 0 {
			if m.FB.xorPixel(x, y, 0x8) {
				m.V[0xF] = 1
			}
		}
		if !m.Quirks.WrapSprite && x == c8eW-1 {
			return
		}
		x = (x + 1) & (c8eW - 1)
	}
}

// drawSprite always waits for vblank; the CHIP-8E interpreter drew during
// the display interrupt.
func (c *CHIP8E) drawSprite(x, y, n int) {
	m := c.m
	m.interrupt(IntFrame)

	pX := int(m.V[x]) & (c8eW - 1)
	pY := int(m.V[y]) & (c8eH - 1)

	m.V[0xF] = 0

	if n == 0 {
		for h, i := 0, uint32(0); h < 16; h, i = h+1, i+2 {
			c.drawByte(pX, pY, m.ReadI(i))
			c.drawByte(pX+8, pY, m.ReadI(i+1))

			if !m.Quirks.WrapSprite && pY == c8eH-1 {
				break
			}
			pY = (pY + 1) & (c8eH - 1)
		}
		return
	}

	for h := 0; h < n; h++ {
		c.drawByte(pX, pY, m.ReadI(uint32(h)))

		if !m.Quirks.WrapSprite && pY == c8eH-1 {
			break
		}
		pY = (pY + 1) & (c8eH - 1)
	}
}

func (c *CHIP8E) anyAudio() bool {
	for i := range c.voices {
		if c.voices[i].Active() {
			return true
		}
	}
	return false
}

func (c *CHIP8E) RenderVideo() {
	c.video.SetBorderColor(bitColors[flag(c.anyAudio())])
	writeMonoFrame(c.video, c.m.FB, c.m.UseTrails)
}

func (c *CHIP8E) RenderAudio(buf []float32) {
	zeroSamples(buf)
	for i := range c.voices {
		c.voices[i].RenderPulse(buf)
	}
}

func (c *CHIP8E) TickTimers() {
	c.m.tickDelay()
	for i := range c.voices {
		c.voices[i].Tick()
	}
}
