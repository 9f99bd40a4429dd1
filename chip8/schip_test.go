package chip8

import "testing"

func TestScenarioResolutionSwitch(t *testing.T) {
	sink := &testSink{}
	c, err := NewSCHIP(program(0x00FF, 0x00E0), Config{Video: sink})
	if err != nil {
		t.Fatal(err)
	}
	sc := c.(*SCHIP)
	m := c.Machine()

	// light a pixel so the clear is observable
	m.FB.set(3, 3, 0x8)

	stepN(t, c, 1)

	if !sc.hires {
		t.Errorf("00FF should enter high resolution")
	}
	if m.FB.W != 128 || m.FB.H != 64 {
		t.Errorf("the bitmap should be 128x64, got %dx%d", m.FB.W, m.FB.H)
	}
	if m.TargetCPF != schipCPFHires {
		t.Errorf("00FF should raise the cycle budget to %d, got %d",
			schipCPFHires, m.TargetCPF)
	}
	if m.Quirks.WaitVBlank {
		t.Errorf("high resolution should disable the vblank wait")
	}

	stepN(t, c, 1)
	for i, attr := range m.FB.Pix {
		if attr != 0 {
			t.Fatalf("pixel %d should be cleared", i)
		}
	}
}

func TestLoresDrawScalesDouble(t *testing.T) {
	rom := program(0xA204, 0xD001)
	rom = append(rom, 0x80)

	c := mustCore(t, NewSCHIP, rom)
	m := c.Machine()

	stepN(t, c, 2)

	// one low-res pixel covers a 2x2 block
	for _, p := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if m.FB.At(p[0], p[1])&0x8 == 0 {
			t.Errorf("pixel (%d,%d) should be lit", p[0], p[1])
		}
	}
	if m.FB.At(2, 0)&0x8 != 0 {
		t.Errorf("pixel (2,0) should be unlit")
	}
}

func TestHiresCollisionCountsRows(t *testing.T) {
	// draw a 2-row sprite, then redraw it: both rows collide
	rom := program(0x00FF, 0xA20A, 0xD002, 0xD002, 0x0000)
	rom = append(rom, 0xFF, 0xFF)

	c := mustCore(t, NewSCHIP, rom)
	m := c.Machine()

	stepN(t, c, 3)
	if m.V[0xF] != 0 {
		t.Fatalf("first draw should not collide, VF=%d", m.V[0xF])
	}

	stepN(t, c, 1)
	if m.V[0xF] != 2 {
		t.Errorf("VF should count colliding rows in high resolution, got %d", m.V[0xF])
	}
}

func TestScrollDown(t *testing.T) {
	c := mustCore(t, NewSCHIP, program(0x00C2))
	m := c.Machine()

	m.FB.set(5, 0, 0x8)
	stepN(t, c, 1)

	if m.FB.At(5, 0)&0x8 != 0 {
		t.Errorf("the source row should be vacated")
	}
	if m.FB.At(5, 2)&0x8 == 0 {
		t.Errorf("content should move down two rows")
	}
}

func TestScrollRightLeft(t *testing.T) {
	c := mustCore(t, NewSCHIP, program(0x00FB, 0x00FC))
	m := c.Machine()

	m.FB.set(10, 10, 0x8)

	stepN(t, c, 1)
	if m.FB.At(14, 10)&0x8 == 0 {
		t.Errorf("00FB should scroll right by 4")
	}

	stepN(t, c, 1)
	if m.FB.At(10, 10)&0x8 == 0 {
		t.Errorf("00FC should scroll back left by 4")
	}
}

func TestJumpIndexedByVX(t *testing.T) {
	c := mustCore(t, NewSCHIP, program(0xB520))
	m := c.Machine()
	m.V[5] = 0x10

	stepN(t, c, 1)
	if m.PC != 0x530 {
		t.Errorf("BXNN should jump to NNN+VX, got %#x", m.PC)
	}
}

func TestLegacyIndexIncrement(t *testing.T) {
	// SCHIP-LEGACY advances I by N, not N+1
	c := mustCore(t, NewSCHIP, program(0xF355))
	m := c.Machine()
	m.I = 0x300

	stepN(t, c, 1)
	if m.I != 0x303 {
		t.Errorf("FN55 should advance I by N under the legacy quirk, got %#x", m.I)
	}
}

func TestLargeFontAddress(t *testing.T) {
	c := mustCore(t, NewSCHIP, program(0x6A07, 0xFA30))
	m := c.Machine()

	stepN(t, c, 2)
	if m.I != uint32(largeFontOffset+7*10) {
		t.Errorf("FX30 should point at the large glyph, got %#x", m.I)
	}

	// the glyph data is present in reserved memory
	if m.Mem[m.I] == 0 {
		t.Errorf("large font data should be loaded")
	}
}

func TestPermaRegisterClamp(t *testing.T) {
	c := mustCore(t, NewSCHIP, program(0xFF75))
	m := c.Machine()
	for i := range m.V {
		m.V[i] = byte(i + 1)
	}

	stepN(t, c, 1)

	// only eight registers persist
	for i := 0; i < 8; i++ {
		if m.R[i] != byte(i+1) {
			t.Errorf("R%d should be %d, got %d", i, i+1, m.R[i])
		}
	}
}
