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
	c8xMemory = 0x1000
	c8xW      = 64
	c8xH      = 32

	c8xCPF     = 30
	c8xResMult = 8
)

// CHIP-8X color attributes: eight foreground colors addressed by BxyN and
// four background colors rotated by 02A0.
var (
	c8xForeColor = [8]uint32{
		rgb(0x00, 0x00, 0x00), // black
		rgb(0xFF, 0x00, 0x00), // red
		rgb(0x00, 0x00, 0xFF), // blue
		rgb(0xFF, 0x00, 0xFF), // violet
		rgb(0x00, 0xFF, 0x00), // green
		rgb(0xFF, 0xFF, 0x00), // yellow
		rgb(0x00, 0xFF, 0xFF), // aqua
		rgb(0xFF, 0xFF, 0xFF), // white
	}

	c8xBackColor = [4]uint32{
		rgb(0x00, 0x00, 0x80), // blue
		rgb(0x00, 0x00, 0x00), // black
		rgb(0x00, 0x80, 0x00), // green
		rgb(0x80, 0x00, 0x00), // red
	}
)

// borderToneIdx picks the foreground color flashed as the border while a
// voice is sounding, per background color.
var borderToneIdx = [4]int{2, 7, 4, 1}

// CHIP8X is the CHIP-8X dialect: two keypads, a pitched buzzer and a
// color attribute buffer zoned over the bitmap.
type CHIP8X struct {
	m     *Machine
	video VideoSink

	// colorBuf holds one foreground color per 8-pixel byte column and
	// attribute row; colorRes masks the display row to its color zone.
	colorBuf [8 * 32]uint32
	colorRes byte

	backColor int

	tone   Voice // pitched by FxF8, armed by Fx18
	buzzer Voice

	sampleRate float64
	rateMult   float64
}

// NewCHIP8X builds the .c8x core.
func NewCHIP8X(rom []byte, cfg Config) (Core, error) {
	if err := validateProgram(rom, c8xMemory); err != nil {
		return nil, err
	}

	m := newMachine(c8xMemory, 0xFFF)
	m.loadProgram(rom)
	m.loadSmallFont()
	m.FB = newPlane(c8xW, c8xH)
	m.UseTrails = cfg.Trails
	m.TargetCPF = c8xCPF

	c := &CHIP8X{
		m:          m,
		video:      cfg.video(),
		colorRes:   0xFC,
		sampleRate: float64(cfg.SampleRate),
		rateMult:   cfg.rateMult(),
	}

	c.tone.SetFreq(chip8xFreq(0), c.sampleRate, c.rateMult)
	c.buzzer.SetFreq(buzzerFreq, c.sampleRate, c.rateMult)

	// the original hardware powered up with a test color in the first zone
	c.colorBuf[0] = c8xForeColor[2]

	c.video.SetViewport(c8xW, c8xH, c8xResMult, 2)

	return c, nil
}

func (c *CHIP8X) Name() string {
	return "CHIP-8X"
}

func (c *CHIP8X) Machine() *Machine {
	return c.m
}

func (c *CHIP8X) Cycle() {
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
		default:
			m.badOpcode(hi, lo)
		}
	case hi == 0x02:
		if lo == 0x00 {
			m.badOpcode(hi, lo)
			break
		}
		// 02A0: step the background color and show it on the border
		c.backColor = (c.backColor + 1) & 0x3
		c.video.SetBorderColor(c8xBackColor[c.backColor] | 0xFF)
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
			// nibble-wise octal add used to steer color zones
			hiSum := (m.V[x] & 0x70) + (m.V[y] & 0x70)
			loSum := (m.V[x] + m.V[y]) & 0x7
			m.V[x] = hiSum | loSum
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
	case hi>>4 == 0xB:
		if hi == 0xBF {
			m.badOpcode(hi, lo)
			break
		}
		c.drawColor(x, y, n)
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
		case 0xF2:
			if m.keyHeld(1, m.V[x]) {
				m.PC += 2
			}
		case 0xF5:
			if !m.keyHeld(1, m.V[x]) {
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
			c.tone.Start(m.V[x])
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
		case 0xF8:
			c.tone.SetFreq(chip8xFreq(m.V[x]), c.sampleRate, c.rateMult)
		case 0xFB:
			m.interrupt(IntFrame)
		default:
			m.badOpcode(hi, lo)
		}
	default:
		m.badOpcode(hi, lo)
	}
}

// drawColor implements BxyN. N of zero paints low-res 8x4 color zones from
// (VX, VX+1); otherwise it colors N attribute rows of one byte column.
func (c *CHIP8X) drawColor(x, y, n int) {
	m := c.m
	pX := int(m.V[x])
	pY := int(m.V[(x+1)&0xF])
	idx := int(m.V[y] & 0x7)

	if n == 0 {
		for zy := 0; zy <= pY>>4; zy++ {
			for zx := 0; zx <= pX>>4; zx++ {
				col := (pX + zx) & 0x7
				row := ((pY + zy) << 2) & 0x1F
				c.colorBuf[row*8+col] = c8xForeColor[idx]
			}
		}
		c.colorRes = 0xFC
		return
	}

	col := (pX >> 3) & 0x7
	for row := pY; row < pY+n; row++ {
		c.colorBuf[(row&0x1F)*8+col] = c8xForeColor[idx]
	}
	c.colorRes = 0xFF
}

func (c *CHIP8X) drawByte(x, y int, data byte) {
	m := c.m
	if data == 0 {
		return
	}

	if m.Quirks.WrapSprite {
		x &= c8xW - 1
	} else if x >= c8xW {
		return
	}

	for b := 0; b < 8; b++ {
		if data&(0x80>>b) != 0 {
			if m.FB.xorPixel(x, y, 0x8) {
				m.V[0xF] = 1
			}
		}
		if !m.Quirks.WrapSprite && x == c8xW-1 {
			return
		}
		x = (x + 1) & (c8xW - 1)
	}
}

func (c *CHIP8X) drawSprite(x, y, n int) {
	m := c.m
	m.interrupt(IntFrame)

	pX := int(m.V[x]) & (c8xW - 1)
	pY := int(m.V[y]) & (c8xH - 1)

	m.V[0xF] = 0

	if n == 0 {
		for h, i := 0, uint32(0); h < 16; h, i = h+1, i+2 {
			c.drawByte(pX, pY, m.ReadI(i))
			c.drawByte(pX+8, pY, m.ReadI(i+1))

			if !m.Quirks.WrapSprite && pY == c8xH-1 {
				break
			}
			pY = (pY + 1) & (c8xH - 1)
		}
		return
	}

	for h := 0; h < n; h++ {
		c.drawByte(pX, pY, m.ReadI(uint32(h)))

		if !m.Quirks.WrapSprite && pY == c8xH-1 {
			break
		}
		pY = (pY + 1) & (c8xH - 1)
	}
}

// pixelColor resolves the foreground color of a lit pixel through the
// attribute buffer.
func (c *CHIP8X) pixelColor(i int) uint32 {
	row := (i / c8xW) & int(c.colorRes)
	col := (i % c8xW) >> 3
	return c.colorBuf[(row&0x1F)*8+col]
}

func (c *CHIP8X) RenderVideo() {
	if c.tone.Active() || c.buzzer.Active() {
		c.video.SetBorderColor(c8xForeColor[borderToneIdx[c.backColor]] | 0xFF)
	} else {
		c.video.SetBorderColor(c8xBackColor[c.backColor] | 0xFF)
	}

	fb := c.m.FB
	out := make([]uint32, len(fb.Pix))
	for i, attr := range fb.Pix {
		if attr == 0 {
			out[i] = c8xBackColor[c.backColor] | 0xFF
			continue
		}
		if c.m.UseTrails {
			out[i] = c.pixelColor(i) | uint32(pixelOpacity[attr&0xF])
		} else {
			out[i] = c.pixelColor(i) | 0xFF
		}
	}
	c.video.WriteFrame(fb.W, fb.H, out)

	if c.m.UseTrails {
		fb.decayTrails()
	}
}

func (c *CHIP8X) RenderAudio(buf []float32) {
	zeroSamples(buf)
	c.tone.RenderPulse(buf)
	c.buzzer.RenderPulse(buf)
}

func (c *CHIP8X) TickTimers() {
	c.m.tickDelay()
	c.tone.Tick()
	c.buzzer.Tick()
}
