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
	classicMemory = 0x1000
	classicW      = 64
	classicH      = 32

	classicCPFVBlank = 30
	classicCPFFree   = 15

	classicResMult = 8
)

// Voice slots shared by the four-voice dialects; the buzzer is the one
// Fx18 arms.
const (
	voice0 = iota
	voice1
	voice2
	voiceBuzzer
)

// Classic is the base CHIP-8 interpreter with modern quirk defaults.
type Classic struct {
	m      *Machine
	video  VideoSink
	voices [4]Voice
}

// NewClassic builds the .ch8 core.
func NewClassic(rom []byte, cfg Config) (Core, error) {
	if err := validateProgram(rom, classicMemory); err != nil {
		return nil, err
	}

	m := newMachine(classicMemory, 0xFFF)
	m.loadProgram(rom)
	m.loadSmallFont()
	m.FB = newPlane(classicW, classicH)
	m.UseTrails = cfg.Trails
	m.Quirks.WaitVBlank = true

	if m.Quirks.WaitVBlank {
		m.TargetCPF = classicCPFVBlank
	} else {
		m.TargetCPF = classicCPFFree
	}

	c := &Classic{m: m, video: cfg.video()}
	for i := range c.voices {
		c.voices[i].SetFreq(buzzerFreq, float64(cfg.SampleRate), cfg.rateMult())
	}

	c.video.SetViewport(classicW, classicH, classicResMult, 2)

	return c, nil
}

func (c *Classic) Name() string {
	return "CHIP-8"
}

func (c *Classic) Machine() *Machine {
	return c.m
}

// Cycle executes one instruction: primary dispatch on the high nibble,
// secondary on the remainder, with a decode error catch-all.
func (c *Classic) Cycle() {
	m := c.m
	hi, lo := m.fetch()

	nnn := uint32(hi&0xF)<<8 | uint32(lo)
	x := int(hi & 0xF)
	y := int(lo >> 4)
	n := int(lo & 0xF)

	switch hi >> 4 {
	case 0x0:
		if hi != 0x00 {
			m.badOpcode(hi, lo)
			break
		}
		switch lo {
		case 0xE0:
			if m.Quirks.WaitVBlank {
				m.interrupt(IntFrame)
			}
			m.FB.Clear()
		case 0xEE:
			m.pop()
		case 0xFD:
			m.interrupt(IntSound)
		default:
			m.badOpcode(hi, lo)
		}
	case 0x1:
		m.jump(nnn)
	case 0x2:
		m.push()
		m.jump(nnn)
	case 0x3:
		if m.V[x] == lo {
			m.PC += 2
		}
	case 0x4:
		if m.V[x] != lo {
			m.PC += 2
		}
	case 0x5:
		if n != 0 {
			m.badOpcode(hi, lo)
			break
		}
		if m.V[x] == m.V[y] {
			m.PC += 2
		}
	case 0x6:
		m.V[x] = lo
	case 0x7:
		m.V[x] += lo
	case 0x8:
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
	case 0x9:
		if n != 0 {
			m.badOpcode(hi, lo)
			break
		}
		if m.V[x] != m.V[y] {
			m.PC += 2
		}
	case 0xA:
		m.setI(nnn)
	case 0xB:
		m.jump(nnn + uint32(m.V[0]))
	case 0xC:
		m.V[x] = byte(rand.Intn(256)) & lo
	case 0xD:
		c.drawSprite(x, y, n)
	case 0xE:
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
	case 0xF:
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
	}
}

// drawByte XORs one sprite row byte onto the bitmap, honoring the wrap
// quirk at the right edge.
func (c *Classic) drawByte(x, y int, data byte) {
	m := c.m
	if data == 0 {
		return
	}

	if m.Quirks.WrapSprite {
		x &= classicW - 1
	} else if x >= classicW {
		return
	}

	for b := 0; b < 8; b++ {
		if data&(0x80>>b) != 0 {
			if m.FB.xorPixel(x, y, 0x8) {
				m.V[0xF] = 1
			}
		}
		if !m.Quirks.WrapSprite && x == classicW-1 {
			return
		}
		x = (x + 1) & (classicW - 1)
	}
}

// drawSprite implements DxyN; N of zero draws the 16x16 double-wide form.
func (c *Classic) drawSprite(x, y, n int) {
	m := c.m
	if m.Quirks.WaitVBlank {
		m.interrupt(IntFrame)
	}

	pX := int(m.V[x]) & (classicW - 1)
	pY := int(m.V[y]) & (classicH - 1)

	m.V[0xF] = 0

	if n == 0 {
		for h, i := 0, uint32(0); h < 16; h, i = h+1, i+2 {
			c.drawByte(pX, pY, m.ReadI(i))
			c.drawByte(pX+8, pY, m.ReadI(i+1))

			if !m.Quirks.WrapSprite && pY == classicH-1 {
				break
			}
			pY = (pY + 1) & (classicH - 1)
		}
		return
	}

	for h := 0; h < n; h++ {
		c.drawByte(pX, pY, m.ReadI(uint32(h)))

		if !m.Quirks.WrapSprite && pY == classicH-1 {
			break
		}
		pY = (pY + 1) & (classicH - 1)
	}
}

func (c *Classic) anyAudio() bool {
	for i := range c.voices {
		if c.voices[i].Active() {
			return true
		}
	}
	return false
}

func (c *Classic) RenderVideo() {
	c.video.SetBorderColor(bitColors[flag(c.anyAudio())])
	writeMonoFrame(c.video, c.m.FB, c.m.UseTrails)
}

func (c *Classic) RenderAudio(buf []float32) {
	zeroSamples(buf)
	for i := range c.voices {
		c.voices[i].RenderPulse(buf)
	}
}

func (c *Classic) TickTimers() {
	c.m.tickDelay()
	for i := range c.voices {
		c.voices[i].Tick()
	}
}
