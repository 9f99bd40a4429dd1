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

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/varia8/varia8/internal/logging"
)

// AudioSink is the audio device collaborator: it reports the output
// stream's sample rate and accepts frames of f32 samples.
type AudioSink interface {
	SampleRate() int
	Queue(samples []float32) error
}

type keyEvent struct {
	player, key int
	down        bool
}

// Runner drives a core at its nominal framerate with two goroutines pinned
// to OS threads: a timing loop that publishes frame ticks and a system
// loop that consumes them, runs the dispatch loop and hands the buffers to
// the collaborators. The system goroutine is the sole mutator of machine
// state once Start returns.
type Runner struct {
	core  Core
	audio AudioSink

	rateMult float64

	// frame handoff flags; the timing loop stores with release semantics,
	// the system loop consumes nextFrame with a compare-and-swap.
	nextFrame atomic.Bool
	stopFrame atomic.Bool

	// quit is the stop token both loops poll each iteration.
	quit atomic.Bool

	overlay atomic.Pointer[string]

	keys chan keyEvent

	frames    atomic.Uint64
	frameTime atomic.Int64 // last frame's dispatch time in ns

	audioBuf []float32

	wg sync.WaitGroup
}

// NewRunner wires a core to its audio collaborator. A nil sink runs
// silent.
func NewRunner(core Core, audio AudioSink, rateMult float64) *Runner {
	if rateMult <= 0 {
		rateMult = 1
	}
	r := &Runner{
		core:     core,
		audio:    audio,
		rateMult: rateMult,
		keys:     make(chan keyEvent, 64),
	}

	if audio != nil && audio.SampleRate() > 0 {
		samples := int(float64(audio.SampleRate()) / (refreshRate * rateMult))
		r.audioBuf = make([]float32, samples)
	}

	return r
}

// Start launches the timing and system goroutines.
func (r *Runner) Start() {
	r.wg.Add(2)
	go r.systemLoop()
	go r.timingLoop()
}

// Stop requests both loops to exit and joins them. The timing loop reacts
// within a millisecond, the system loop within a frame.
func (r *Runner) Stop() {
	r.quit.Store(true)
	r.wg.Wait()
}

// PressKey queues a key-down event for the system loop; it also resolves a
// pending Fx0A wait.
func (r *Runner) PressKey(player, key int) {
	select {
	case r.keys <- keyEvent{player: player, key: key, down: true}:
	default:
	}
}

// ReleaseKey queues a key-up event for the system loop.
func (r *Runner) ReleaseKey(player, key int) {
	select {
	case r.keys <- keyEvent{player: player, key: key, down: false}:
	default:
	}
}

// Frames reports the number of completed frames.
func (r *Runner) Frames() uint64 {
	return r.frames.Load()
}

// Overlay returns the most recently published status snapshot. Readers
// get a consistent value or the previous one, never a torn string.
func (r *Runner) Overlay() string {
	if s := r.overlay.Load(); s != nil {
		return *s
	}
	return ""
}

// timingLoop paces the wall clock: every frame interval it raises the
// stop-frame and next-frame flags for the system loop. It sleeps to
// within a millisecond of the deadline and spins the remainder, keeping
// ticks within about a millisecond of schedule.
func (r *Runner) timingLoop() {
	defer r.wg.Done()
	runtime.LockOSThread()

	period := time.Duration(float64(time.Second) / (refreshRate * r.rateMult))
	next := time.Now().Add(period)

	for !r.quit.Load() {
		now := time.Now()
		if now.Before(next) {
			if wait := next.Sub(now); wait > time.Millisecond {
				time.Sleep(wait - time.Millisecond)
			}
			continue
		}

		next = next.Add(period)
		if now.Sub(next) > period {
			// fell too far behind; rebase instead of bursting ticks
			next = now.Add(period)
		}

		r.stopFrame.Store(true)
		r.nextFrame.Store(true)
	}
}

// systemLoop consumes frame ticks and runs the interpreter. Per frame:
// drain input, lift expired interrupts, dispatch until the budget or an
// interrupt or the pacer cuts it short, then tick timers and hand the
// frame to the render and audio collaborators.
func (r *Runner) systemLoop() {
	defer r.wg.Done()
	runtime.LockOSThread()

	m := r.core.Machine()

	for !r.quit.Load() {
		if !r.nextFrame.CompareAndSwap(true, false) {
			time.Sleep(time.Millisecond)
			continue
		}
		r.stopFrame.Store(false)

		start := time.Now()
		r.frames.Add(1)
		m.Frames++

		r.drainKeys(m)
		m.resolveInterrupts()

		for m.Cycles = 0; m.running() && !r.stopFrame.Load(); m.Cycles++ {
			r.core.Cycle()
		}

		r.core.TickTimers()
		r.core.RenderVideo()
		r.renderAudio()

		r.frameTime.Store(int64(time.Since(start)))
		r.publishOverlay()
	}

	if err := m.Halted(); err != nil {
		logging.Errorf("dispatch halted: %v", err)
	}
}

func (r *Runner) drainKeys(m *Machine) {
	for {
		select {
		case ev := <-r.keys:
			if ev.down {
				m.KeyPressed(ev.player, ev.key)
			} else {
				m.KeyReleased(ev.player, ev.key)
			}
		default:
			return
		}
	}
}

func (r *Runner) renderAudio() {
	if r.audio == nil || len(r.audioBuf) == 0 {
		return
	}

	r.core.RenderAudio(r.audioBuf)
	if err := r.audio.Queue(r.audioBuf); err != nil {
		logging.Warnf("audio queue: %v", err)
	}
}

// publishOverlay snapshots the frame statistics and the instruction at PC
// behind an atomic pointer.
func (r *Runner) publishOverlay() {
	framerate := refreshRate * r.rateMult
	framespan := 1000.0 / framerate
	frametime := float64(r.frameTime.Load()) / float64(time.Millisecond)

	m := r.core.Machine()
	s := fmt.Sprintf(
		"Framerate:%9.3f fps |%9.3f ms\nFrametime:%9.3f ms (%6.2f%%)\n%s\n",
		framerate, framespan, frametime, frametime/framespan*100,
		m.Disassemble(m.PC))

	r.overlay.Store(&s)
}
