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

// Package platform is the SDL2 frontend: window, renderer, audio device
// and keyboard. The emulator core publishes frames and viewport changes
// from its worker goroutine; the main thread picks them up in Draw.
package platform

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
)

// Platform owns the SDL window and renderer. It implements the core's
// video sink: WriteFrame and the viewport setters may be called from the
// emulator worker, Draw must run on the main thread.
type Platform struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	mu sync.Mutex

	// latest frame published by the core
	frameW, frameH int
	frame          []byte

	// viewport configuration and border color
	viewW, viewH int
	mult, pad    int
	border       uint32

	texW, texH int
	resized    bool
}

// New initializes SDL and creates the window and renderer.
func New(title string) (*Platform, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("initialize SDL: %w", err)
	}

	window, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		640, 320,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	return &Platform{
		window:   window,
		renderer: renderer,
		mult:     8,
		pad:      2,
	}, nil
}

// Close tears the SDL objects down.
func (p *Platform) Close() {
	if p.texture != nil {
		p.texture.Destroy()
	}
	if p.renderer != nil {
		p.renderer.Destroy()
	}
	if p.window != nil {
		p.window.Destroy()
	}
	sdl.Quit()
}

// SetTitle updates the window title; main thread only.
func (p *Platform) SetTitle(title string) {
	p.window.SetTitle(title)
}

// SetViewport records the output geometry requested by the core.
func (p *Platform) SetViewport(w, h, mult, pad int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewW, p.viewH = w, h
	p.mult, p.pad = mult, pad
	p.resized = true
}

// SetBorderColor records the border color register.
func (p *Platform) SetBorderColor(color uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.border = color | 0xFF
}

// WriteFrame stores an RGBA8 frame (alpha in the low byte) for the next
// Draw.
func (p *Platform) WriteFrame(w, h int, pix []uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frame) != len(pix)*4 {
		p.frame = make([]byte, len(pix)*4)
	}
	for i, c := range pix {
		p.frame[i*4+0] = byte(c >> 24)
		p.frame[i*4+1] = byte(c >> 16)
		p.frame[i*4+2] = byte(c >> 8)
		p.frame[i*4+3] = byte(c)
	}
	p.frameW, p.frameH = w, h
}

// Draw presents the latest frame. Runs on the main thread at the display
// refresh, independently of the emulation worker.
func (p *Platform) Draw() error {
	p.mu.Lock()

	if p.resized && p.viewW > 0 {
		winW := int32((p.viewW + 2*p.pad) * p.mult)
		winH := int32((p.viewH + 2*p.pad) * p.mult)
		p.window.SetSize(winW, winH)
		p.resized = false
	}

	frameW, frameH := p.frameW, p.frameH
	var frame []byte
	if frameW > 0 {
		frame = append([]byte(nil), p.frame...)
	}
	border := p.border
	pad, mult := p.pad, p.mult
	p.mu.Unlock()

	p.renderer.SetDrawColor(
		uint8(border>>24), uint8(border>>16), uint8(border>>8), 255)
	p.renderer.Clear()

	if frame == nil {
		p.renderer.Present()
		return nil
	}

	if p.texture == nil || p.texW != frameW || p.texH != frameH {
		if p.texture != nil {
			p.texture.Destroy()
		}
		tex, err := p.renderer.CreateTexture(
			sdl.PIXELFORMAT_RGBA32, sdl.TEXTUREACCESS_STREAMING,
			int32(frameW), int32(frameH))
		if err != nil {
			return fmt.Errorf("create frame texture: %w", err)
		}
		p.texture = tex
		p.texW, p.texH = frameW, frameH
	}

	if err := p.texture.Update(nil, frame, frameW*4); err != nil {
		return err
	}

	dst := sdl.Rect{
		X: int32(pad * mult),
		Y: int32(pad * mult),
		W: int32(frameW * mult),
		H: int32(frameH * mult),
	}
	p.renderer.Copy(p.texture, nil, &dst)
	p.renderer.Present()

	return nil
}
