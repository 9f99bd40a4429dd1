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

import "math"

// buzzerFreq is the tone of the plain pulse buzzer shared by the classic
// dialects.
const buzzerFreq = 440.0

// voiceGain keeps headroom for up to four simultaneous voices.
const voiceGain = 0.25

// Voice is one oscillator: a phase in [0,1), a per-sample phase step and a
// countdown timer in frames. The generator (pulse, pattern, byte stream)
// lives with the dialect that owns the voice.
type Voice struct {
	Phase float64
	Step  float64
	Timer byte
}

// SetFreq derives the phase step for a tone at hz.
func (v *Voice) SetFreq(hz, sampleRate, rateMult float64) {
	if sampleRate <= 0 {
		return
	}
	v.Step = hz / sampleRate * rateMult
}

// Start arms the voice timer for the given number of frames. Fx18 adjusts
// a length of 1 up to 2, matching the original interpreters.
func (v *Voice) Start(frames byte) {
	if frames == 1 {
		frames = 2
	}
	v.Timer = frames
}

// Tick counts the voice timer down once per frame.
func (v *Voice) Tick() {
	if v.Timer > 0 {
		v.Timer--
	}
}

// Active reports whether the voice is currently sounding.
func (v *Voice) Active() bool {
	return v.Timer > 0
}

func (v *Voice) step() {
	v.Phase += v.Step
	if v.Phase >= 1 {
		v.Phase -= 1
	}
}

// RenderPulse mixes a 50% duty square into buf, gated by the timer. The
// output level follows the high bit of the phase.
func (v *Voice) RenderPulse(buf []float32) {
	if !v.Active() {
		return
	}
	for i := range buf {
		if v.Phase >= 0.5 {
			buf[i] += voiceGain
		} else {
			buf[i] -= voiceGain
		}
		v.step()
	}
}

// RenderPattern mixes the XO-CHIP 128-bit waveform into buf. Sample i plays
// bit (phase*128) of the pattern, MSB first within each byte.
func (v *Voice) RenderPattern(buf []float32, pattern *[16]byte) {
	if !v.Active() {
		return
	}
	for i := range buf {
		bit := int(v.Phase*128) & 0x7F
		mask := byte(1) << (0x7 ^ (bit & 0x7))
		if pattern[bit>>3]&mask != 0 {
			buf[i] += voiceGain
		} else {
			buf[i] -= voiceGain
		}
		v.step()
	}
}

// zeroSamples silences a mix buffer before the voices add into it.
func zeroSamples(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// patternFreq maps an XO-CHIP pitch byte to the playback rate of the
// 128-bit pattern: 4000*2^((pitch-64)/48) samples per second over 128 bits.
func patternFreq(pitch byte) float64 {
	return 4000 * math.Pow(2, (float64(pitch)-64)/48) / 128
}

// chip8xFreq maps the CHIP-8X FxF8 pitch byte to a buzzer frequency. A
// pitch of zero selects the hardware's center value.
func chip8xFreq(pitch byte) float64 {
	if pitch == 0 {
		pitch = 0x80
	}
	return float64(64 + int(0xFF-pitch)>>3<<4)
}

/*==================================================================*/

// Track is MEGACHIP's PCM byte-stream voice: signed 8-bit samples pulled
// from program memory, optionally looping.
type Track struct {
	Data  []byte
	Loop  bool
	Phase float64
	Step  float64
	on    bool
}

// Reset silences the track and drops its sample data.
func (t *Track) Reset() {
	*t = Track{}
}

// Playing reports whether the track has samples left to render.
func (t *Track) Playing() bool {
	return t.on && len(t.Data) > 0
}

// start arms the track; step is the per-sample phase advance over the
// whole buffer.
func (t *Track) start(data []byte, step float64, loop bool) {
	t.Data = data
	t.Step = step
	t.Loop = loop
	t.Phase = 0
	t.on = true
}

// RenderStream mixes the PCM track into buf. A non-looping track resets
// itself once the phase runs off the end.
func (t *Track) RenderStream(buf []float32) {
	if !t.Playing() {
		return
	}
	n := float64(len(t.Data))
	for i := range buf {
		if t.Phase >= 1 {
			if !t.Loop {
				t.Reset()
				return
			}
			t.Phase -= 1
		}
		buf[i] += float32(int8(t.Data[int(t.Phase*n)])) / 128
		t.Phase += t.Step
	}
}
