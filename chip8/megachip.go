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
	megaMemory = 0x1000000 // the 24-bit index register reaches 16 MiB
	megaLoresW = 128
	megaLoresH = 64
	megaW      = 256
	megaH      = 192

	megaCPFLores = 30
	megaCPFHires = 45
	megaCPFMega  = 3000

	megaResMult = 2
)

// texOpacity maps the 080N opacity nibble to an alpha level.
var texOpacity = [4]byte{0xFF, 0x3F, 0x7F, 0xBF}

// texture describes the rectangle DxyN paints in manual-refresh mode.
type texture struct {
	W, H    int
	opacity byte
	collide byte

	// fontOffset remembers the last Fx29/Fx30 address; a draw from it
	// paints a font glyph instead of a texture.
	fontOffset uint32
}

func (t *texture) reset() {
	*t = texture{opacity: 0xFF, fontOffset: ^uint32(0)}
}

// MegaChip is the MEGACHIP dialect. It behaves like SCHIP until 0011
// switches it into manual-refresh mode, where the program composites
// 256x192 truecolor frames itself through an extended opcode table.
type MegaChip struct {
	m     *Machine
	video VideoSink

	manual bool
	hires  bool

	background *Surface
	lastRender *Surface
	collision  []byte
	palette    [256]uint32
	fontColor  [10]uint32
	blend      BlendMode
	tex        texture
	viewAlpha  byte

	voices [4]Voice
	track  Track

	sampleRate float64
	rateMult   float64
}

// NewMegaChip builds the .mc8 core.
func NewMegaChip(rom []byte, cfg Config) (Core, error) {
	if err := validateProgram(rom, megaMemory); err != nil {
		return nil, err
	}

	m := newMachine(megaMemory, 0xFFFFFF)
	m.loadProgram(rom)
	m.loadFonts()
	m.FB = newPlane(megaLoresW, megaLoresH)
	m.UseTrails = cfg.Trails

	// the MegaChip interpreter never moved I on FN55/FN65
	m.Quirks.IdxRegNoInc = true
	m.Quirks.ShiftVX = true

	c := &MegaChip{
		m:          m,
		video:      cfg.video(),
		background: newSurface(megaW, megaH),
		lastRender: newSurface(megaW, megaH),
		collision:  make([]byte, megaW*megaH),
		viewAlpha:  0xFF,
		sampleRate: float64(cfg.SampleRate),
		rateMult:   cfg.rateMult(),
	}
	c.tex.reset()

	for i := range c.voices {
		c.voices[i].SetFreq(buzzerFreq, c.sampleRate, c.rateMult)
	}

	c.video.SetViewport(megaW, megaH, megaResMult, 2)
	c.prepDisplay(ResLO)

	return c, nil
}

func (c *MegaChip) Name() string {
	return "MEGACHIP"
}

func (c *MegaChip) Machine() *Machine {
	return c.m
}

// prepDisplay switches between the SCHIP-style modes and manual refresh,
// adjusting the cycle budget accordingly.
func (c *MegaChip) prepDisplay(mode Resolution) {
	m := c.m
	c.manual = mode == ResMC

	if c.manual {
		m.Quirks.WaitVBlank = false
		m.TargetCPF = megaCPFMega
		return
	}

	c.hires = mode != ResLO
	m.Quirks.WaitVBlank = !c.hires
	if c.hires {
		m.TargetCPF = megaCPFHires
	} else {
		m.TargetCPF = megaCPFLores
	}
}

// skip steps over the next instruction; 01NN carries a trailing data word.
func (c *MegaChip) skip() {
	m := c.m
	if m.ReadMem(m.PC) == 0x01 {
		m.PC += 4
	} else {
		m.PC += 2
	}
}

/*==================================================================*/

// initFontColors builds the ten-step gradient the manual-refresh font
// glyphs are painted with.
func (c *MegaChip) initFontColors() {
	for i := 0; i < 10; i++ {
		mult := 255 - 11*i
		if mult < 0 {
			mult = 0
		}
		c.fontColor[i] = rgba(
			byte(clamp255(uint32(mult)*264/256)),
			byte(clamp255(uint32(mult)*291/256)),
			byte(clamp255(uint32(mult)*309/256)),
			0xFF,
		)
	}
}

func (c *MegaChip) selectBlend(mode int) {
	switch mode {
	case 4:
		c.blend = BlendLinearDodge
	case 5:
		c.blend = BlendMultiply
	default:
		c.blend = BlendAlpha
	}
}

// scrapBuffers clears every composite layer.
func (c *MegaChip) scrapBuffers() {
	c.lastRender.Clear()
	c.background.Clear()
	for i := range c.collision {
		c.collision[i] = 0
	}
}

func (c *MegaChip) writeSurface(s *Surface) {
	out := make([]uint32, len(s.Pix))
	for i, p := range s.Pix {
		out[i] = p&^0xFF | uint32(c.viewAlpha)
	}
	c.video.WriteFrame(s.W, s.H, out)
}

// flushBuffers presents the background, promotes it to the last rendered
// frame and starts the next one empty. This is manual-refresh 00E0.
func (c *MegaChip) flushBuffers() {
	c.writeSurface(c.background)
	c.lastRender.CopyFrom(c.background)
	c.background.Clear()
	for i := range c.collision {
		c.collision[i] = 0
	}
}

// blendAndFlush re-presents the last rendered frame composited over the
// working background; the scroll opcodes go through it.
func (c *MegaChip) blendAndFlush() {
	out := make([]uint32, len(c.background.Pix))
	for i := range out {
		out[i] = blendAlpha(c.lastRender.Pix[i], c.background.Pix[i])&^0xFF |
			uint32(c.viewAlpha)
	}
	c.video.WriteFrame(c.background.W, c.background.H, out)
}

func (c *MegaChip) scrollBuffers(dx, dy int) {
	c.lastRender.Shift(dx, dy)
	c.blendAndFlush()
}

// startTrack arms the PCM voice from the track header at I: a 16-bit
// pitch, a 24-bit length and the sample bytes at I+6.
func (c *MegaChip) startTrack(repeat bool) {
	m := c.m

	size := int(m.ReadI(2))<<16 | int(m.ReadI(3))<<8 | int(m.ReadI(4))
	pitch := int(m.ReadI(0))<<8 | int(m.ReadI(1))

	start := int(m.I) + 6
	if size == 0 || c.sampleRate <= 0 || start+size > m.memSize {
		c.track.Reset()
		return
	}

	step := c.rateMult * float64(pitch) / float64(size) / c.sampleRate
	c.track.start(m.Mem[start:start+size], step, repeat)
}

/*==================================================================*/

func (c *MegaChip) Cycle() {
	m := c.m
	hi, lo := m.fetch()

	nnn := uint32(hi&0xF)<<8 | uint32(lo)
	x := int(hi & 0xF)
	y := int(lo >> 4)
	n := int(lo & 0xF)

	switch {
	case hi>>4 == 0x0:
		c.cycleZero(hi, lo, n)
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
		if n != 0 {
			m.badOpcode(hi, lo)
			break
		}
		if m.V[x] == m.V[y] {
			c.skip()
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
		m.setI(nnn & 0xFFF)
	case hi>>4 == 0xB:
		m.jump(nnn + uint32(m.V[x]))
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
	case hi>>4 == 0xF:
		switch lo {
		case 0x07:
			m.V[x] = m.Delay
		case 0x0A:
			m.waitKey(x)
			if c.manual {
				c.writeSurface(c.background)
			}
		case 0x15:
			m.Delay = m.V[x]
		case 0x18:
			c.voices[voiceBuzzer].Start(m.V[x])
		case 0x1E:
			m.addI(uint32(m.V[x]))
		case 0x29:
			m.setI(smallFontAddr(m.V[x]))
			c.tex.fontOffset = m.I
		case 0x30:
			m.setI(largeFontAddr(m.V[x]))
			c.tex.fontOffset = m.I
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

// cycleZero dispatches the 0-branch, whose table depends on the refresh
// mode.
func (c *MegaChip) cycleZero(hi, lo byte, n int) {
	m := c.m

	if c.manual {
		switch {
		case hi == 0x00 && lo == 0x10:
			m.interrupt(IntFrame)
			c.prepDisplay(ResLO)
			c.scrapBuffers()
		case hi == 0x07 && lo == 0x00:
			c.track.Reset()
		case hi == 0x06:
			c.startTrack(n == 0)
		case hi == 0x08:
			idx := n
			if idx > 3 {
				idx = 0
			}
			c.tex.opacity = texOpacity[idx]
			c.selectBlend(n)
		case hi == 0x00 && lo>>4 == 0xB:
			c.scrollBuffers(0, -n)
		case hi == 0x00 && lo>>4 == 0xC:
			c.scrollBuffers(0, n)
		case hi == 0x00 && lo == 0xE0:
			m.interrupt(IntFrame)
			c.flushBuffers()
		case hi == 0x00 && lo == 0xEE:
			m.pop()
		case hi == 0x00 && lo == 0xFB:
			c.scrollBuffers(4, 0)
		case hi == 0x00 && lo == 0xFC:
			c.scrollBuffers(-4, 0)
		case hi == 0x00 && lo == 0xFD:
			m.interrupt(IntSound)
		case hi == 0x01:
			// 24-bit index load: I = NN << 16 | next word
			m.setI(uint32(lo)<<16 |
				uint32(m.ReadMem(m.PC))<<8 | uint32(m.ReadMem(m.PC+1)))
			m.PC += 2
		case hi == 0x02:
			// palette upload: NN ARGB entries from I, index starting at 1
			for pos, off := 1, uint32(0); pos <= int(lo); pos, off = pos+1, off+4 {
				c.palette[pos&0xFF] = rgba(
					m.ReadI(off+1), m.ReadI(off+2), m.ReadI(off+3), m.ReadI(off+0))
			}
		case hi == 0x03:
			c.tex.W = int(lo)
			if c.tex.W == 0 {
				c.tex.W = 256
			}
		case hi == 0x04:
			c.tex.H = int(lo)
			if c.tex.H == 0 {
				c.tex.H = 256
			}
		case hi == 0x05:
			c.viewAlpha = lo
		case hi == 0x09:
			c.tex.collide = lo
		default:
			m.badOpcode(hi, lo)
		}
		return
	}

	if hi != 0x00 {
		m.badOpcode(hi, lo)
		return
	}

	switch {
	case lo == 0x11:
		m.interrupt(IntFrame)
		c.prepDisplay(ResMC)
		c.selectBlend(0)
		c.initFontColors()
		c.scrapBuffers()
		c.tex.reset()
		c.track.Reset()
	case lo>>4 == 0xB:
		m.FB.Shift(0, -n)
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
}

/*==================================================================*/

// drawFont paints a glyph into the background with the gradient colors;
// font draws carry no collision.
func (c *MegaChip) drawFont(originX, originY, n int) {
	m := c.m

	for row := 0; row < n; row++ {
		yy := originY + row
		if m.Quirks.WrapSprite {
			yy %= megaH
		} else if yy >= megaH {
			break
		}

		data := m.ReadI(uint32(row))
		color := c.fontColor[minInt(row, len(c.fontColor)-1)]

		for col := 0; col < 8; col++ {
			xx := originX + col
			if m.Quirks.WrapSprite {
				xx %= megaW
			} else if xx >= megaW {
				break
			}
			if data&(0x80>>col) != 0 {
				c.background.set(xx, yy, color)
			}
		}
	}
}

// drawTexture composites the palette-indexed texture at I into the
// background. Collision fires where the collision map matches the armed
// index; painted pixels record their own index. Coordinates wrap modulo
// the screen when the wrap quirk is on.
func (c *MegaChip) drawTexture(originX, originY int) {
	m := c.m

	if m.I+uint32(c.tex.W*c.tex.H) >= uint32(m.memSize) {
		c.tex.reset()
		return
	}

	for row := 0; row < c.tex.H; row++ {
		yy := originY + row
		if m.Quirks.WrapSprite {
			yy %= megaH
		} else if yy >= megaH {
			break
		}

		base := uint32(row * c.tex.W)
		for col := 0; col < c.tex.W; col++ {
			xx := originX + col
			if m.Quirks.WrapSprite {
				xx %= megaW
			} else if xx >= megaW {
				break
			}

			srcIdx := m.ReadI(base + uint32(col))
			if srcIdx == 0 {
				continue
			}

			ci := yy*megaW + xx
			if c.collision[ci] == c.tex.collide {
				m.V[0xF] = 1
			}
			c.collision[ci] = srcIdx
			c.background.Pix[ci] = compositeBlend(
				c.palette[srcIdx], c.background.Pix[ci], c.blend, c.tex.opacity)
		}
	}
}

func (c *MegaChip) drawSingleBytes(originX, originY, width int, data uint32) bool {
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
		if offX == megaLoresW-1 {
			return collided
		}
	}
	return collided
}

func (c *MegaChip) drawDoubleBytes(originX, originY, width int, data uint32) bool {
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

		if offX == megaLoresW-1 {
			return collided
		}
	}
	return collided
}

func (c *MegaChip) drawSprite(x, y, n int) {
	m := c.m
	if m.Quirks.WaitVBlank {
		m.interrupt(IntFrame)
	}

	if c.manual {
		originX := int(m.V[x])
		originY := int(m.V[y])

		m.V[0xF] = 0

		if !m.Quirks.WrapSprite && originY >= megaH {
			return
		}

		if c.tex.fontOffset == m.I {
			c.drawFont(originX, originY, n)
		} else {
			c.drawTexture(originX, originY)
		}
		return
	}

	// legacy modes reuse the SCHIP drawing rules on the 128x64 bitmap
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
				if offY == megaLoresH-1 {
					break
				}
			}
		} else {
			for row := 0; row < n; row++ {
				offY := originY + row

				if c.drawSingleBytes(originX, offY, 16, uint32(m.ReadI(uint32(row)))<<shift) {
					collisions++
				}
				if offY == megaLoresH-1 {
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
		if offY == megaLoresH-2 {
			break
		}
	}
	m.V[0xF] = flag(collided)
}

/*==================================================================*/

func (c *MegaChip) anyAudio() bool {
	for i := range c.voices {
		if c.voices[i].Active() {
			return true
		}
	}
	return false
}

func (c *MegaChip) RenderVideo() {
	if c.manual {
		// the program drives presentation through 00E0 and the scrolls
		c.video.SetBorderColor(bitColors[flag(c.voices[voiceBuzzer].Active())])
		return
	}

	c.video.SetBorderColor(bitColors[flag(c.anyAudio())])

	// upscale the 128x64 bitmap 2x into the centered 256x192 output
	fb := c.m.FB
	for i, attr := range fb.Pix {
		color := monoPixel(attr, c.m.UseTrails)

		xx := (i % megaLoresW) * 2
		yy := (i/megaLoresW)*2 + 32

		c.background.set(xx, yy, color)
		c.background.set(xx+1, yy, color)
		c.background.set(xx, yy+1, color)
		c.background.set(xx+1, yy+1, color)
	}
	c.video.WriteFrame(megaW, megaH, c.background.Pix)
	fb.decayTrails()
}

func (c *MegaChip) RenderAudio(buf []float32) {
	zeroSamples(buf)

	if c.manual {
		c.track.RenderStream(buf)
		c.voices[voiceBuzzer].RenderPulse(buf)
		return
	}

	for i := range c.voices {
		c.voices[i].RenderPulse(buf)
	}
}

func (c *MegaChip) TickTimers() {
	c.m.tickDelay()
	for i := range c.voices {
		c.voices[i].Tick()
	}
}
