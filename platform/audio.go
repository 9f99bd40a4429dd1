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

package platform

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/veandco/go-sdl2/sdl"
)

const audioSampleRate = 44100

// Audio is the queued-audio device: the emulation worker hands it one
// frame's worth of f32 samples at a time.
type Audio struct {
	device  sdl.AudioDeviceID
	rate    int
	scratch []byte
}

// NewAudio opens the default output device for mono f32 samples.
func NewAudio() (*Audio, error) {
	want := &sdl.AudioSpec{
		Freq:     audioSampleRate,
		Format:   sdl.AUDIO_F32LSB,
		Channels: 1,
		Samples:  1024,
	}

	var have sdl.AudioSpec
	device, err := sdl.OpenAudioDevice("", false, want, &have, 0)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}

	a := &Audio{device: device, rate: int(have.Freq)}
	if a.rate == 0 {
		a.rate = audioSampleRate
	}

	sdl.PauseAudioDevice(device, false)

	return a, nil
}

// SampleRate reports the device's output rate.
func (a *Audio) SampleRate() int {
	return a.rate
}

// Queue feeds a frame of samples to the device.
func (a *Audio) Queue(samples []float32) error {
	if len(a.scratch) != len(samples)*4 {
		a.scratch = make([]byte, len(samples)*4)
	}
	for i, s := range samples {
		binary.LittleEndian.PutUint32(a.scratch[i*4:], math.Float32bits(s))
	}
	return sdl.QueueAudio(a.device, a.scratch)
}

// Close shuts the device down.
func (a *Audio) Close() {
	if a.device != 0 {
		sdl.CloseAudioDevice(a.device)
	}
}
