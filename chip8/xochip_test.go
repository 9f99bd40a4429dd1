package chip8

import "testing"

func TestPatternLoad(t *testing.T) {
	rom := program(0xF101, 0xA206, 0xF002)
	pattern := []byte{
		0xAA, 0x55, 0xAA, 0x55, 0xF0, 0x0F, 0xF0, 0x0F,
		0x81, 0x42, 0x24, 0x18, 0x18, 0x24, 0x42, 0x81,
	}
	rom = append(rom, pattern...)

	c := mustCore(t, NewXOChip, rom)
	xo := c.(*XOChip)

	stepN(t, c, 3)

	if xo.planeMask != 1 {
		t.Errorf("FN01 should select plane 1, got %d", xo.planeMask)
	}
	for i, b := range pattern {
		if xo.pattern[i] != b {
			t.Fatalf("pattern byte %d should be %#x, got %#x", i, b, xo.pattern[i])
		}
	}

	// the pattern voice reproduces the loaded bits: one sample per bit
	xo.voice.Timer = 10
	xo.voice.Phase = 0
	xo.voice.Step = 1.0 / 128

	buf := make([]float32, 16)
	xo.voice.RenderPattern(buf, &xo.pattern)

	// 0xAA: alternating high/low from the MSB down
	for i := 0; i < 8; i++ {
		high := buf[i] > 0
		if high != (i%2 == 0) {
			t.Errorf("sample %d should follow pattern bit, got %v", i, buf[i])
		}
	}
}

func TestPlanarMaskedClear(t *testing.T) {
	c := mustCore(t, NewXOChip, program(0xF201, 0x00E0))
	xo := c.(*XOChip)

	xo.planes[0].set(1, 1, 1)
	xo.planes[1].set(1, 1, 1)

	// select plane 2 only, then clear
	stepN(t, c, 2)

	if xo.planes[0].At(1, 1) != 1 {
		t.Errorf("00E0 should leave unselected planes alone")
	}
	if xo.planes[1].At(1, 1) != 0 {
		t.Errorf("00E0 should clear the selected plane")
	}
}

func TestPlanarMaskedScroll(t *testing.T) {
	c := mustCore(t, NewXOChip, program(0xF301, 0x00C2))
	xo := c.(*XOChip)

	xo.planes[0].set(4, 0, 1)
	xo.planes[1].set(4, 0, 1)
	xo.planes[2].set(4, 0, 1)

	stepN(t, c, 2)

	if xo.planes[0].At(4, 2) != 1 || xo.planes[1].At(4, 2) != 1 {
		t.Errorf("selected planes should scroll down")
	}
	if xo.planes[2].At(4, 0) != 1 {
		t.Errorf("unselected planes should not move")
	}
}

func TestMultiPlaneSpriteIsPackedContiguously(t *testing.T) {
	// both planes selected: plane 0 reads rows at I, plane 1 at I+N
	rom := program(0xF301, 0xA206, 0xD002)
	rom = append(rom, 0x80, 0x80, 0x40, 0x40)

	c := mustCore(t, NewXOChip, rom)
	xo := c.(*XOChip)

	stepN(t, c, 3)

	if xo.planes[0].At(0, 0) != 1 || xo.planes[0].At(0, 1) != 1 {
		t.Errorf("plane 0 should draw the first sprite block")
	}
	if xo.planes[1].At(1, 0) != 1 || xo.planes[1].At(1, 1) != 1 {
		t.Errorf("plane 1 should draw the second sprite block")
	}
	if xo.planes[1].At(0, 0) != 0 {
		t.Errorf("plane 1 should not reuse plane 0 data")
	}
}

func TestPlaneOffsetOrdinals(t *testing.T) {
	c := mustCore(t, NewXOChip, program(0x0000))
	xo := c.(*XOChip)

	xo.planeMask = 0b1010
	if xo.planeOffset(1) != 0 {
		t.Errorf("plane 1 is the first active plane")
	}
	if xo.planeOffset(3) != 1 {
		t.Errorf("plane 3 is the second active plane")
	}
}

func TestDrawInvolution(t *testing.T) {
	rom := program(0xF101, 0xA20A, 0xD003, 0xD003, 0x0000)
	rom = append(rom, 0x3C, 0x42, 0x3C)

	c := mustCore(t, NewXOChip, rom)
	xo := c.(*XOChip)

	stepN(t, c, 4)

	for i, v := range xo.planes[0].Pix {
		if v != 0 {
			t.Fatalf("XOR drawing twice should restore the buffer, pixel %d lit", i)
		}
	}
	if c.Machine().V[0xF] != 1 {
		t.Errorf("the second draw should report collisions")
	}
}

func TestWideLoadSkipsFourBytes(t *testing.T) {
	// 3A00 skips the F000 NNNN pair as one instruction
	c := mustCore(t, NewXOChip, program(0x3A00, 0xF000, 0x1234, 0x6B07))
	m := c.Machine()

	stepN(t, c, 1)
	if m.PC != 0x206 {
		t.Fatalf("a taken skip over F000 should advance by 6, got %#x", m.PC)
	}

	stepN(t, c, 1)
	if m.V[0xB] != 7 {
		t.Errorf("execution should resume after the wide instruction")
	}
}

func TestWideLoad(t *testing.T) {
	c := mustCore(t, NewXOChip, program(0xF000, 0xABCD))
	m := c.Machine()

	stepN(t, c, 1)
	if m.I != 0xABCD {
		t.Errorf("F000 should load the trailing word into I, got %#x", m.I)
	}
	if m.PC != 0x204 {
		t.Errorf("F000 should step over its data word, got PC %#x", m.PC)
	}
}

func TestRangedRegisterTransfer(t *testing.T) {
	// descending operands store in reverse order
	c := mustCore(t, NewXOChip, program(0x5312))
	m := c.Machine()
	m.V[1], m.V[2], m.V[3] = 0x11, 0x22, 0x33
	m.I = 0x400

	stepN(t, c, 1)

	if m.Mem[0x400] != 0x33 || m.Mem[0x401] != 0x22 || m.Mem[0x402] != 0x11 {
		t.Errorf("5XY2 with X>Y should store descending, got % x", m.Mem[0x400:0x403])
	}
	if m.I != 0x400 {
		t.Errorf("ranged transfers must not move I, got %#x", m.I)
	}
}

func TestPaletteLoad(t *testing.T) {
	rom := program(0xA204, 0x5014)
	rom = append(rom, 0xE0, 0x1C) // bright red, bright green

	c := mustCore(t, NewXOChip, rom)
	xo := c.(*XOChip)

	stepN(t, c, 2)

	if xo.bitColors[0] != palette332(0xE0) {
		t.Errorf("color 0 should come from the 3-3-2 cube, got %#x", xo.bitColors[0])
	}
	if xo.bitColors[1] != palette332(0x1C) {
		t.Errorf("color 1 should come from the 3-3-2 cube, got %#x", xo.bitColors[1])
	}
}

func TestHiresResize(t *testing.T) {
	sink := &testSink{}
	c, err := NewXOChip(program(0x00FF), Config{Video: sink})
	if err != nil {
		t.Fatal(err)
	}
	xo := c.(*XOChip)

	xo.planes[0].set(0, 0, 1)
	stepN(t, c, 1)

	for i, p := range xo.planes {
		if p.W != 128 || p.H != 64 {
			t.Errorf("plane %d should be 128x64, got %dx%d", i, p.W, p.H)
		}
		for j, v := range p.Pix {
			if v != 0 {
				t.Fatalf("plane %d pixel %d should be cleared on resize", i, j)
			}
		}
	}
	if sink.viewW != 128 || sink.viewH != 64 {
		t.Errorf("the viewport should follow the resolution change")
	}
}
