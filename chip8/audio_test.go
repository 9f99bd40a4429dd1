package chip8

import "testing"

func TestPulseGatedByTimer(t *testing.T) {
	v := Voice{Step: 0.1}
	buf := make([]float32, 8)

	v.RenderPulse(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d should be silent without a timer, got %v", i, s)
		}
	}

	v.Timer = 1
	v.RenderPulse(buf)

	seen := false
	for _, s := range buf {
		if s != 0 {
			seen = true
		}
	}
	if !seen {
		t.Errorf("an armed voice should produce output")
	}
}

func TestPulseDutyCycle(t *testing.T) {
	// a step of 1/8 spends four samples in each half of the square
	v := Voice{Step: 0.125, Timer: 1}
	buf := make([]float32, 8)
	v.RenderPulse(buf)

	for i := 0; i < 4; i++ {
		if buf[i] >= 0 {
			t.Errorf("sample %d should be the low half, got %v", i, buf[i])
		}
	}
	for i := 4; i < 8; i++ {
		if buf[i] <= 0 {
			t.Errorf("sample %d should be the high half, got %v", i, buf[i])
		}
	}
}

func TestVoiceStartStretchesOne(t *testing.T) {
	var v Voice

	v.Start(1)
	if v.Timer != 2 {
		t.Errorf("a length of 1 should stretch to 2, got %d", v.Timer)
	}

	v.Start(7)
	if v.Timer != 7 {
		t.Errorf("other lengths pass through, got %d", v.Timer)
	}
}

func TestVoiceTick(t *testing.T) {
	v := Voice{Timer: 2}

	v.Tick()
	if !v.Active() {
		t.Errorf("the voice should still sound with a frame left")
	}

	v.Tick()
	v.Tick()
	if v.Active() {
		t.Errorf("the voice should fall silent at zero")
	}
}

func TestPatternFreqAnchors(t *testing.T) {
	// pitch 64 is the canonical 4000Hz playback rate over 128 bits
	if got := patternFreq(64); !closeTo(got, 31.25) {
		t.Errorf("pitch 64 should run the pattern at 31.25Hz, got %v", got)
	}

	// +48 doubles the rate
	if got := patternFreq(112); !closeTo(got, 62.5) {
		t.Errorf("pitch 112 should double the rate, got %v", got)
	}
}

func TestTrackLooping(t *testing.T) {
	var tr Track
	tr.start([]byte{0x40, 0xC0}, 0.5, true)

	buf := make([]float32, 8)
	tr.RenderStream(buf)

	if !tr.Playing() {
		t.Errorf("a looping track should keep playing")
	}

	// samples alternate with the data: +0x40, -0x40
	if buf[0] <= 0 || buf[1] >= 0 || buf[2] <= 0 {
		t.Errorf("looped samples should follow the data, got %v", buf[:4])
	}
}

func TestSetFreqHeadless(t *testing.T) {
	var v Voice
	v.SetFreq(440, 0, 1)
	if v.Step != 0 {
		t.Errorf("without a sample rate the voice stays unpitched")
	}

	v.SetFreq(440, 44100, 1)
	if !closeTo(v.Step, 440.0/44100) {
		t.Errorf("step should be freq/rate, got %v", v.Step)
	}
}
