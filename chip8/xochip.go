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

import (
	"math/bits"
	"math/rand"
)

const (
	xoMemory = 0x10000
	xoLoresW = 64
	xoLoresH = 32

	xoCPF     = 1000
	xoResMult = 8

	// xoDefaultPitch yields the canonical 4000Hz pattern playback rate.
	xoDefaultPitch = 64
)

// xoDefaultColors maps the 4-bit plane combination to a color: the Octo
// palette for the common two-plane content, a gray ramp for the rest.
var xoDefaultColors = [16]uint32{
	rgb(0x99, 0x66, 0x00), // no planes
	rgb(0xFF, 0xCC, 0x00), // plane 0
	rgb(0xFF, 0x66, 0x00), // plane 1
	rgb(0x66, 0x22, 0x00), // planes 0+1
	rgb(0x20, 0x20, 0x20),
	rgb(0x40, 0x40, 0x40),
	rgb(0x60, 0x60, 0x60),
	rgb(0x80, 0x80, 0x80),
	rgb(0xA0, 0xA0, 0xA0),
	rgb(0xC0, 0xC0, 0xC0),
	rgb(0xE0, 0xE0, 0xE0),
	rgb(0xFF, 0xFF, 0xFF),
	rgb(0x33, 0x66, 0x99),
	rgb(0x66, 0x99, 0xCC),
	rgb(0x99, 0xCC, 0xFF),
	rgb(0xCC, 0xFF, 0xFF),
}

// XOChip is the XO-CHIP dialect: four independently addressable display
// planes, 16-bit wide loads, ranged register transfers and pattern audio.
type XOChip struct {
	m     *Machine
	video VideoSink

	planes    [4]*Plane
	planeMask byte
	bitColors [16]uint32
	hires     bool

	pattern [16]byte
	voice   Voice // pattern generator
	buzzer  Voice

	sampleRate float64
	rateMult   float64
}

// NewXOChip builds the .xo8 core.
func NewXOChip(rom []byte, cfg Config) (Core, error) {
	if err := validateProgram(rom, xoMemory); err != nil {
		return nil, err
	}

	m := newMachine(xoMemory, 0xFFFF)
	m.loadProgram(rom)
	m.loadSmallFont()
	m.Quirks.WrapSprite = true
	m.TargetCPF = xoCPF

	c := &XOChip{
		m:          m,
		video:      cfg.video(),
		planeMask:  1,
		bitColors:  xoDefaultColors,
		sampleRate: float64(cfg.SampleRate),
		rateMult:   cfg.rateMult(),
	}
	for i := range c.planes {
		c.planes[i] = newPlane(xoLoresW, xoLoresH)
	}

	c.voice.SetFreq(patternFreq(xoDefaultPitch), c.sampleRate, c.rateMult)
	c.buzzer.SetFreq(buzzerFreq, c.sampleRate, c.rateMult)

	c.video.SetViewport(xoLoresW, xoLoresH, xoResMult, 2)

	return c, nil
}

func (c *XOChip) Name() string {
	return "XO-CHIP"
}

func (c *XOChip) Machine() *Machine {
	return c.m
}

func (c *XOChip) width() int {
	if c.hires {
		return xoLoresW * 2
	}
	return xoLoresW
}

func (c *XOChip) height() int {
	if c.hires {
		return xoLoresH * 2
	}
	return xoLoresH
}

// prepDisplay resizes and clears every plane for the new geometry before
// the next draw can land.
func (c *XOChip) prepDisplay(mode Resolution) {
	c.hires = mode != ResLO

	w, h := c.width(), c.height()
	for _, p := range c.planes {
		p.Resize(w, h)
	}

	mult := xoResMult
	if c.hires {
		mult /= 2
	}
	c.video.SetViewport(w, h, mult, 2)
}

// skip steps over the next instruction, which is four bytes long when it
// is the F000 double-word load.
func (c *XOChip) skip() {
	m := c.m
	if m.ReadMem(m.PC) == 0xF0 && m.ReadMem(m.PC+1) == 0x00 {
		m.PC += 4
	} else {
		m.PC += 2
	}
}

// eachPlane visits the planes selected by the planar mask.
func (c *XOChip) eachPlane(fn func(p *Plane)) {
	for i, p := range c.planes {
		if c.planeMask&(1<<i) != 0 {
			fn(p)
		}
	}
}

func (c *XOChip) scroll(dx, dy int) {
	if c.m.Quirks.WaitScroll {
		c.m.interrupt(IntFrame)
	}
	c.eachPlane(func(p *Plane) { p.Shift(dx, dy) })
}

func (c *XOChip) Cycle() {
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
			if n != 0 {
				c.scroll(0, n)
			}
		case lo>>4 == 0xD:
			if n != 0 {
				c.scroll(0, -n)
			}
		case lo == 0xE0:
			c.eachPlane(func(p *Plane) { p.Clear() })
		case lo == 0xEE:
			m.pop()
		case lo == 0xFB:
			c.scroll(4, 0)
		case lo == 0xFC:
			c.scroll(-4, 0)
		case lo == 0xFD:
			m.interrupt(IntSound)
		case lo == 0xFE:
			c.prepDisplay(ResLO)
		case lo == 0xFF:
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
			c.skip()
		}
	case hi>>4 == 0x4:
		if m.V[x] != lo {
			c.skip()
		}
	case hi>>4 == 0x5:
		switch n {
		case 0x0:
			if m.V[x] == m.V[y] {
				c.skip()
			}
		case 0x2:
			// store Vx..Vy (either direction) at I without moving I
			c.eachRanged(x, y, func(z, idx int) {
				m.WriteI(uint32(z), m.V[idx])
			})
		case 0x3:
			c.eachRanged(x, y, func(z, idx int) {
				m.V[idx] = m.ReadI(uint32(z))
			})
		case 0x4:
			// ranged palette load through the 3-3-2 color cube
			c.eachRanged(x, y, func(z, idx int) {
				c.bitColors[idx&0xF] = palette332(m.ReadI(uint32(z)))
			})
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
			c.skip()
		}
	case hi>>4 == 0xA:
		m.setI(nnn)
	case hi>>4 == 0xB:
		m.jump(nnn + uint32(m.V[0]))
	case hi>>4 == 0xC:
		m.V[x] = byte(rand.Intn(256)) & lo
	case hi>>4 == 0xD:
		c.drawSprite(x, y, n)
	case hi>>4 == 0xE:
		switch lo {
		case 0x9E:
			if m.keyHeld(0, m.V[x]) {
				c.skip()
			}
		case 0xA1:
			if !m.keyHeld(0, m.V[x]) {
				c.skip()
			}
		default:
			m.badOpcode(hi, lo)
		}
	case hi == 0xF0 && lo == 0x00:
		// F000 NNNN: load I with the next 16-bit word
		m.setI(uint32(m.ReadMem(m.PC))<<8 | uint32(m.ReadMem(m.PC+1)))
		m.PC += 2
	case hi == 0xF0 && lo == 0x02:
		for i := 0; i < 16; i++ {
			c.pattern[i] = m.ReadI(uint32(i))
		}
	case hi>>4 == 0xF:
		switch lo {
		case 0x01:
			c.planeMask = byte(x)
		case 0x07:
			m.V[x] = m.Delay
		case 0x0A:
			m.waitKey(x)
		case 0x15:
			m.Delay = m.V[x]
		case 0x18:
			c.voice.Start(m.V[x])
		case 0x1E:
			m.addI(uint32(m.V[x]))
		case 0x29:
			m.setI(smallFontAddr(m.V[x]))
		case 0x30:
			m.setI(largeFontAddr(m.V[x]))
		case 0x33:
			m.storeBCD(x)
		case 0x3A:
			c.voice.SetFreq(patternFreq(m.V[x]), c.sampleRate, c.rateMult)
		case 0x55:
			m.storeRegs(x)
		case 0x65:
			m.loadRegs(x)
		case 0x75:
			m.setPermaRegs(x + 1)
		case 0x85:
			m.getPermaRegs(x + 1)
		default:
			m.badOpcode(hi, lo)
		}
	default:
		m.badOpcode(hi, lo)
	}
}

// eachRanged visits registers X through Y inclusive, in whichever
// direction the operands run. z is the memory offset, idx the register.
func (c *XOChip) eachRanged(x, y int, fn func(z, idx int)) {
	dist := x - y
	flip := -1
	if dist < 0 {
		dist, flip = -dist, 1
	}
	for z := 0; z <= dist; z++ {
		fn(z, x+z*flip)
	}
}

// planeOffset is the ordinal of plane p among the currently selected
// planes. Sprite data for multiple planes is packed contiguously in
// selection order.
func (c *XOChip) planeOffset(p int) int {
	return bits.OnesCount8(c.planeMask & (1<<p - 1))
}

func (c *XOChip) drawByte(p *Plane, x, y int, data byte) {
	m := c.m
	if data == 0 {
		return
	}

	if m.Quirks.WrapSprite {
		x &= p.W - 1
	} else if x >= p.W {
		return
	}

	for b := 0; b < 8; b++ {
		if data&(0x80>>b) != 0 {
			if p.xorPixel(x, y, 0x1) {
				m.V[0xF] = 1
			}
		}
		if !m.Quirks.WrapSprite && x == p.W-1 {
			return
		}
		x = (x + 1) & (p.W - 1)
	}
}

// drawSprite implements DxyN over every selected plane. Each plane's rows
// are fetched at I plus the plane's ordinal times the sprite length: the
// multi-plane sprite is packed contiguously in source order.
func (c *XOChip) drawSprite(x, y, n int) {
	m := c.m
	pX := int(m.V[x]) & (c.width() - 1)
	pY := int(m.V[y]) & (c.height() - 1)

	m.V[0xF] = 0

	for pi, p := range c.planes {
		if c.planeMask&(1<<pi) == 0 {
			continue
		}

		if n == 0 {
			base := uint32(c.planeOffset(pi) * 32)
			py := pY
			for h := 0; h < 16; h++ {
				c.drawByte(p, pX, py, m.ReadI(base+uint32(h*2)))
				c.drawByte(p, pX+8, py, m.ReadI(base+uint32(h*2+1)))

				if !m.Quirks.WrapSprite && py == p.H-1 {
					break
				}
				py = (py + 1) & (p.H - 1)
			}
			continue
		}

		base := uint32(c.planeOffset(pi) * n)
		py := pY
		for h := 0; h < n; h++ {
			c.drawByte(p, pX, py, m.ReadI(base+uint32(h)))

			if !m.Quirks.WrapSprite && py == p.H-1 {
				break
			}
			py = (py + 1) & (p.H - 1)
		}
	}
}

func (c *XOChip) RenderVideo() {
	c.video.SetBorderColor(c.bitColors[flag(c.buzzer.Active())] | 0xFF)

	w, h := c.width(), c.height()
	out := make([]uint32, w*h)
	for i := range out {
		idx := c.planes[0].Pix[i] |
			c.planes[1].Pix[i]<<1 |
			c.planes[2].Pix[i]<<2 |
			c.planes[3].Pix[i]<<3
		out[i] = c.bitColors[idx&0xF] | 0xFF
	}
	c.video.WriteFrame(w, h, out)
}

func (c *XOChip) RenderAudio(buf []float32) {
	zeroSamples(buf)
	c.voice.RenderPattern(buf, &c.pattern)
	c.buzzer.RenderPulse(buf)
}

func (c *XOChip) TickTimers() {
	c.m.tickDelay()
	c.voice.Tick()
	c.buzzer.Tick()
}
