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

// Package chip8 implements a multi-variant CHIP-8 virtual machine: the
// classic interpreter plus the CHIP-8E, CHIP-8X, SCHIP-LEGACY, XO-CHIP and
// MEGACHIP dialects. The dialects share one machine substrate (memory,
// registers, stack, timers, display planes, audio voices) and differ in
// their opcode tables, quirks and display models. A Runner drives a core at
// its nominal framerate against the wall clock.
package chip8

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// refreshRate is the nominal display refresh every dialect runs at.
const refreshRate = 60.0

// VideoSink is the presentation collaborator. The core pushes viewport
// geometry, a border color and RGBA8 frames; everything else is the
// frontend's business.
type VideoSink interface {
	// SetViewport reconfigures the output: pixel dimensions, integer
	// multiplier and border padding.
	SetViewport(w, h, mult, pad int)

	// SetBorderColor updates the single border color register.
	SetBorderColor(color uint32)

	// WriteFrame publishes a full frame of RGBA8 pixels (alpha in the low
	// byte).
	WriteFrame(w, h int, pix []uint32)
}

// Config carries the collaborator handles a core needs at build time.
type Config struct {
	// Video receives frames and viewport changes; nil runs headless.
	Video VideoSink

	// SampleRate is the audio device's output rate in Hz. Zero leaves the
	// voices unpitched (headless).
	SampleRate int

	// RateMult scales the nominal framerate (and audio pitch with it).
	RateMult float64

	// Trails enables the pixel ghosting effect on the bitmap dialects.
	Trails bool
}

func (c Config) rateMult() float64 {
	if c.RateMult <= 0 {
		return 1
	}
	return c.RateMult
}

func (c Config) video() VideoSink {
	if c.Video == nil {
		return nopVideo{}
	}
	return c.Video
}

type nopVideo struct{}

func (nopVideo) SetViewport(w, h, mult, pad int)   {}
func (nopVideo) SetBorderColor(color uint32)       {}
func (nopVideo) WriteFrame(w, h int, pix []uint32) {}

// Core is one dialect: a decoder/executor over a Machine plus its render
// paths. Cycle executes exactly one fetch-decode-execute step; the Runner
// owns the per-frame loop around it.
type Core interface {
	// Machine exposes the shared machine state.
	Machine() *Machine

	// Cycle fetches, decodes and executes a single instruction. Unknown
	// opcodes halt the machine with a DecodeError.
	Cycle()

	// RenderVideo publishes the display buffers to the video collaborator.
	// Called by the worker at frame boundaries.
	RenderVideo()

	// RenderAudio mixes one buffer of f32 samples from the active voices.
	RenderAudio(buf []float32)

	// TickTimers counts down the delay and audio timers; called once per
	// frame after the dispatch loop returns.
	TickTimers()

	// Name is the dialect's display name.
	Name() string
}

/*==================================================================*/

type coreBuilder func(rom []byte, cfg Config) (Core, error)

// registry maps a ROM file extension to its dialect.
var registry = map[string]coreBuilder{
	".ch8": NewClassic,
	".c8e": NewCHIP8E,
	".c8x": NewCHIP8X,
	".sc8": NewSCHIP,
	".xo8": NewXOChip,
	".mc8": NewMegaChip,
}

// ErrUnknownExtension is returned when no dialect claims a ROM's extension.
var ErrUnknownExtension = errors.New("no dialect registered for extension")

// New builds the dialect core selected by the ROM file's extension.
func New(path string, rom []byte, cfg Config) (Core, error) {
	ext := strings.ToLower(filepath.Ext(path))

	build, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownExtension, ext)
	}

	return build(rom, cfg)
}

// LoadFile reads a ROM from disk and builds its core.
func LoadFile(path string, cfg Config) (Core, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return New(path, rom, cfg)
}

// validateProgram rejects ROMs that do not fit the variant's primary
// memory before any machine state is created.
func validateProgram(rom []byte, memSize int) error {
	if len(rom) == 0 {
		return errors.New("program is empty")
	}
	if loadOffset+len(rom) > memSize {
		return fmt.Errorf("program too large: %d bytes, limit is %d bytes",
			len(rom), memSize-loadOffset)
	}
	return nil
}
