package chip8

import "testing"

func TestManualRefreshEntry(t *testing.T) {
	c := mustCore(t, NewMegaChip, program(0x0011))
	mc := c.(*MegaChip)
	m := c.Machine()

	mc.background.set(1, 1, 0x12345678)
	mc.collision[7] = 9

	m.resolveInterrupts()
	c.Cycle()

	if !mc.manual {
		t.Fatalf("0011 should enter manual refresh")
	}
	if m.TargetCPF != megaCPFMega {
		t.Errorf("manual refresh should use the MC cycle budget, got %d", m.TargetCPF)
	}
	if mc.blend != BlendAlpha {
		t.Errorf("0011 should reset the blend mode to alpha")
	}
	if mc.background.at(1, 1) != 0 || mc.collision[7] != 0 {
		t.Errorf("0011 should clear the auxiliary buffers")
	}
	if mc.fontColor[0] == 0 || mc.fontColor[9] == 0 {
		t.Errorf("0011 should initialise the font gradient")
	}
	if mc.fontColor[0] == mc.fontColor[9] {
		t.Errorf("the font gradient should fade across its ten entries")
	}
	if m.Interrupt != IntFrame {
		t.Errorf("the mode switch should wait for the frame boundary")
	}
}

func TestWideIndexLoad(t *testing.T) {
	c := mustCore(t, NewMegaChip, program(0x0011, 0x01AB, 0xCDEF))
	m := c.Machine()

	stepN(t, c, 2)
	if m.I != 0xABCDEF {
		t.Errorf("01NN should load a 24-bit index, got %#x", m.I)
	}
	if m.PC != 0x206 {
		t.Errorf("01NN should step over its data word, got PC %#x", m.PC)
	}
}

func TestSkipOverWideIndexLoad(t *testing.T) {
	c := mustCore(t, NewMegaChip, program(0x0011, 0x3000, 0x0100, 0x0000, 0x6B09))
	m := c.Machine()

	stepN(t, c, 2)
	if m.PC != 0x208 {
		t.Errorf("a taken skip over 01NN should advance by 6, got PC %#x", m.PC)
	}

	stepN(t, c, 1)
	if m.V[0xB] != 9 {
		t.Errorf("execution should resume past the wide instruction")
	}
}

func TestPaletteUpload(t *testing.T) {
	rom := program(0x0011, 0xA300, 0x0202)
	c := mustCore(t, NewMegaChip, rom)
	mc := c.(*MegaChip)
	m := c.Machine()

	// two ARGB entries at 0x300
	copy(m.Mem[0x300:], []byte{
		0x80, 0x10, 0x20, 0x30,
		0xFF, 0xAA, 0xBB, 0xCC,
	})

	stepN(t, c, 3)

	if mc.palette[1] != rgba(0x10, 0x20, 0x30, 0x80) {
		t.Errorf("palette entry 1 mismatch: %#x", mc.palette[1])
	}
	if mc.palette[2] != rgba(0xAA, 0xBB, 0xCC, 0xFF) {
		t.Errorf("palette entry 2 mismatch: %#x", mc.palette[2])
	}
}

func TestTextureDrawAndCollision(t *testing.T) {
	// enter MC, set a 2x2 texture, point I at it and draw twice
	rom := program(0x0011, 0x0302, 0x0402, 0x0901, 0xA300, 0xD000, 0xD000)
	c := mustCore(t, NewMegaChip, rom)
	mc := c.(*MegaChip)
	m := c.Machine()

	copy(m.Mem[0x300:], []byte{1, 1, 1, 1})
	mc.palette[1] = rgba(0xFF, 0x00, 0x00, 0xFF)

	stepN(t, c, 6)

	if mc.tex.W != 2 || mc.tex.H != 2 {
		t.Fatalf("texture should be 2x2, got %dx%d", mc.tex.W, mc.tex.H)
	}
	if m.V[0xF] != 0 {
		t.Errorf("first texture draw should not collide")
	}
	if mc.background.at(0, 0) == 0 {
		t.Errorf("the texture should composite into the background")
	}
	if mc.collision[0] != 1 {
		t.Errorf("painted pixels should record their palette index")
	}

	// the armed collision index matches what the first draw left behind
	stepN(t, c, 1)
	if m.V[0xF] != 1 {
		t.Errorf("drawing over a matching collision index should set VF")
	}
}

func TestManualClearPromotesFrame(t *testing.T) {
	sink := &testSink{}
	c, err := NewMegaChip(program(0x0011, 0x00E0), Config{Video: sink})
	if err != nil {
		t.Fatal(err)
	}
	mc := c.(*MegaChip)

	stepN(t, c, 1)
	mc.background.set(2, 3, rgba(1, 2, 3, 0xFF))

	stepN(t, c, 1)

	if mc.lastRender.at(2, 3) != rgba(1, 2, 3, 0xFF) {
		t.Errorf("00E0 should promote the background to the last render")
	}
	if mc.background.at(2, 3) != 0 {
		t.Errorf("00E0 should start a fresh background")
	}
	if sink.frameW != megaW || sink.frameH != megaH {
		t.Errorf("00E0 should present a %dx%d frame", megaW, megaH)
	}
}

func TestLegacyModeMatchesSCHIP(t *testing.T) {
	rom := program(0xA204, 0xD001)
	rom = append(rom, 0x80)

	c := mustCore(t, NewMegaChip, rom)
	m := c.Machine()

	stepN(t, c, 2)

	// low-res draws scale 2x2 until manual refresh is entered
	if m.FB.At(0, 0)&0x8 == 0 || m.FB.At(1, 1)&0x8 == 0 {
		t.Errorf("legacy mode should draw like SCHIP")
	}
}

func TestIndexNotMovedByTransfers(t *testing.T) {
	c := mustCore(t, NewMegaChip, program(0xF355))
	m := c.Machine()
	m.I = 0x300

	stepN(t, c, 1)
	if m.I != 0x300 {
		t.Errorf("MEGACHIP FN55 must leave I untouched, got %#x", m.I)
	}
}

func TestAudioTrack(t *testing.T) {
	c, err := NewMegaChip(program(0x0011, 0xA300, 0x0601), Config{SampleRate: 100})
	if err != nil {
		t.Fatal(err)
	}
	mc := c.(*MegaChip)
	m := c.Machine()

	// header at 0x300: pitch 0x1000, length 4, then the samples
	copy(m.Mem[0x300:], []byte{0x10, 0x00, 0x00, 0x00, 0x04, 0x00, 0x7F, 0x80, 0x7F, 0x80})

	stepN(t, c, 3)

	if !mc.track.Playing() {
		t.Fatalf("060N should start the track")
	}
	if len(mc.track.Data) != 4 {
		t.Errorf("track length should come from the header, got %d", len(mc.track.Data))
	}

	buf := make([]float32, 8)
	mc.track.Phase = 0
	mc.track.Step = 0.25
	mc.track.RenderStream(buf)

	if buf[0] <= 0 || buf[1] >= 0 {
		t.Errorf("the stream should follow the signed samples, got %v %v", buf[0], buf[1])
	}

	// a non-looping track stops at the end
	if mc.track.Playing() {
		t.Errorf("a one-shot track should reset after the last sample")
	}
}

func TestTrackStop(t *testing.T) {
	c := mustCore(t, NewMegaChip, program(0x0011, 0x0700))
	mc := c.(*MegaChip)

	mc.track.start([]byte{1, 2, 3}, 0.1, true)

	stepN(t, c, 2)
	if mc.track.Playing() {
		t.Errorf("0700 should stop the track")
	}
}
