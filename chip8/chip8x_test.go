package chip8

import "testing"

func TestOctalNibbleAdd(t *testing.T) {
	c := mustCore(t, NewCHIP8X, program(0x5121))
	m := c.Machine()
	m.V[1] = 0x35
	m.V[2] = 0x47

	stepN(t, c, 1)

	// high nibbles add as one field, low nibbles wrap octally
	want := byte((0x30+0x40)&0xF0 | (0x35+0x47)&0x7)
	if m.V[1] != want {
		t.Errorf("5XY1 should be %#x, got %#x", want, m.V[1])
	}
	if m.PC != 0x202 {
		t.Errorf("5XY1 should not skip, got PC %#x", m.PC)
	}
}

func TestBackgroundRotation(t *testing.T) {
	sink := &testSink{}
	c, err := NewCHIP8X(program(0x02A0, 0x02A0), Config{Video: sink})
	if err != nil {
		t.Fatal(err)
	}
	cx := c.(*CHIP8X)

	stepN(t, c, 1)
	if cx.backColor != 1 {
		t.Errorf("02A0 should advance the background color, got %d", cx.backColor)
	}
	if sink.border != c8xBackColor[1]|0xFF {
		t.Errorf("02A0 should recolor the border")
	}

	stepN(t, c, 1)
	if cx.backColor != 2 {
		t.Errorf("a second 02A0 should advance again, got %d", cx.backColor)
	}
}

func TestPlayerTwoKeys(t *testing.T) {
	c := mustCore(t, NewCHIP8X, program(0xE1F2))
	m := c.Machine()
	m.V[1] = 0x4
	m.Keys[1][0x4] = true

	stepN(t, c, 1)
	if m.PC != 0x204 {
		t.Errorf("EXF2 should skip on a held player-2 key, got PC %#x", m.PC)
	}

	c = mustCore(t, NewCHIP8X, program(0xE1F5))
	m = c.Machine()
	m.V[1] = 0x4

	stepN(t, c, 1)
	if m.PC != 0x204 {
		t.Errorf("EXF5 should skip on a released player-2 key, got PC %#x", m.PC)
	}
}

func TestColoredRectangle(t *testing.T) {
	sink := &testSink{}
	// light the top-left pixel, then color its zone red with B130
	rom := program(0x6000, 0xA208, 0xD001, 0xB130)
	rom = append(rom, 0x80)

	c, err := NewCHIP8X(rom, Config{Video: sink})
	if err != nil {
		t.Fatal(err)
	}
	cx := c.(*CHIP8X)
	m := c.Machine()

	// V1/V2 are the rectangle origin, V3 its color
	m.V[1] = 0
	m.V[2] = 0
	m.V[3] = 1 // red

	stepN(t, c, 3)
	if m.FB.At(0, 0)&0x8 == 0 {
		t.Fatalf("pixel (0,0) should be lit before coloring")
	}

	stepN(t, c, 1)
	if cx.colorBuf[0] != c8xForeColor[1] {
		t.Errorf("BxyN should color the first zone red")
	}

	c.RenderVideo()
	if sink.pix[0] != c8xForeColor[1]|0xFF {
		t.Errorf("a lit pixel should render in its zone color, got %#x", sink.pix[0])
	}
	if sink.pix[1] != c8xBackColor[0]|0xFF {
		t.Errorf("an unlit pixel should render in the background color, got %#x", sink.pix[1])
	}
}

func TestBuzzerPitch(t *testing.T) {
	c, err := NewCHIP8X(program(0x6A10, 0xFAF8), Config{SampleRate: 44100})
	if err != nil {
		t.Fatal(err)
	}
	cx := c.(*CHIP8X)

	before := cx.tone.Step
	stepN(t, c, 2)

	if cx.tone.Step == before {
		t.Errorf("FXF8 should retune the buzzer voice")
	}
	if want := chip8xFreq(0x10) / 44100; !closeTo(cx.tone.Step, want) {
		t.Errorf("buzzer step should be %v, got %v", want, cx.tone.Step)
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
