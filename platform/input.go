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

import "github.com/veandco/go-sdl2/sdl"

// Keys is the consumer of keypad events; the emulator Runner satisfies it.
type Keys interface {
	PressKey(player, key int)
	ReleaseKey(player, key int)
}

// KeyMap lays the 4x4 CHIP-8 pad over the left of a modern keyboard.
var KeyMap = map[sdl.Scancode]int{
	sdl.SCANCODE_X: 0x0,
	sdl.SCANCODE_1: 0x1,
	sdl.SCANCODE_2: 0x2,
	sdl.SCANCODE_3: 0x3,
	sdl.SCANCODE_Q: 0x4,
	sdl.SCANCODE_W: 0x5,
	sdl.SCANCODE_E: 0x6,
	sdl.SCANCODE_A: 0x7,
	sdl.SCANCODE_S: 0x8,
	sdl.SCANCODE_D: 0x9,
	sdl.SCANCODE_Z: 0xA,
	sdl.SCANCODE_C: 0xB,
	sdl.SCANCODE_4: 0xC,
	sdl.SCANCODE_R: 0xD,
	sdl.SCANCODE_F: 0xE,
	sdl.SCANCODE_V: 0xF,
}

// KeyMap2 puts the CHIP-8X second pad on the numpad.
var KeyMap2 = map[sdl.Scancode]int{
	sdl.SCANCODE_KP_0:        0x0,
	sdl.SCANCODE_KP_1:        0x1,
	sdl.SCANCODE_KP_2:        0x2,
	sdl.SCANCODE_KP_3:        0x3,
	sdl.SCANCODE_KP_4:        0x4,
	sdl.SCANCODE_KP_5:        0x5,
	sdl.SCANCODE_KP_6:        0x6,
	sdl.SCANCODE_KP_7:        0x7,
	sdl.SCANCODE_KP_8:        0x8,
	sdl.SCANCODE_KP_9:        0x9,
	sdl.SCANCODE_KP_DIVIDE:   0xA,
	sdl.SCANCODE_KP_MULTIPLY: 0xB,
	sdl.SCANCODE_KP_MINUS:    0xC,
	sdl.SCANCODE_KP_PLUS:     0xD,
	sdl.SCANCODE_KP_ENTER:    0xE,
	sdl.SCANCODE_KP_PERIOD:   0xF,
}

// ProcessEvents drains the SDL event queue and forwards pad keys to the
// emulator. Returns false once the user asks to quit. Main thread only.
func ProcessEvents(keys Keys) bool {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch ev := e.(type) {
		case *sdl.QuitEvent:
			return false
		case *sdl.KeyboardEvent:
			if ev.Repeat != 0 {
				continue
			}

			sc := ev.Keysym.Scancode
			if ev.Type == sdl.KEYDOWN && sc == sdl.SCANCODE_ESCAPE {
				return false
			}

			if key, ok := KeyMap[sc]; ok {
				if ev.Type == sdl.KEYDOWN {
					keys.PressKey(0, key)
				} else {
					keys.ReleaseKey(0, key)
				}
			}
			if key, ok := KeyMap2[sc]; ok {
				if ev.Type == sdl.KEYDOWN {
					keys.PressKey(1, key)
				} else {
					keys.ReleaseKey(1, key)
				}
			}
		}
	}

	return true
}
