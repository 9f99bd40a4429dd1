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

	"github.com/varia8/varia8/internal/logging"
)

// safezone is the number of out-of-bounds pad bytes trailing the primary
// memory region. Clamped reads and writes all land on the pad's final byte,
// so a runaway I register can never corrupt program memory.
const safezone = 32

// loadOffset is where programs are copied into memory. All supported
// variants start execution there.
const loadOffset = 0x200

// Interrupt is a cooperative halt token. The worker observes it inside the
// dispatch loop's continuation predicate and ends the current frame early.
type Interrupt int

const (
	// IntNone means dispatch runs until the cycle budget is spent.
	IntNone Interrupt = iota

	// IntFrame suspends until the next frame tick (vblank/scroll waits).
	IntFrame

	// IntInput suspends until a key press is delivered to InputReg.
	IntInput

	// IntSound halts emulation for good (00FD and friends).
	IntSound

	// IntDelay suspends until the delay timer reaches zero.
	IntDelay
)

// Quirks are flat booleans consulted by opcodes whose behavior differs
// between the dialects sharing an implementation.
type Quirks struct {
	// WaitVBlank suspends the frame on 00E0/DxyN so drawing syncs to the
	// display refresh.
	WaitVBlank bool

	// WrapSprite wraps sprites around the screen edges instead of clipping.
	WrapSprite bool

	// ShiftVX makes 8xy6/8xyE operate on VX directly instead of copying VY
	// into VX first.
	ShiftVX bool

	// IdxRegNoInc leaves I untouched after FN55/FN65.
	IdxRegNoInc bool

	// IdxRegMinus makes FN55/FN65 advance I by N instead of N+1.
	IdxRegMinus bool

	// WaitScroll suspends the frame before scroll operations.
	WaitScroll bool
}

// DecodeError reports an opcode the active dialect does not recognize.
// It halts the dispatch loop but is recoverable: the ROM can be unloaded
// and reloaded.
type DecodeError struct {
	HI, LO byte
	PC     uint32
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("invalid opcode %02X%02X at #%06X", e.HI, e.LO, e.PC)
}

// Machine is the execution substrate shared by every dialect core: memory,
// register file, stack, timers, quirk table and interrupt state. Once a
// Runner starts, it is owned exclusively by the worker goroutine.
type Machine struct {
	// Mem is the primary memory region plus the trailing safety pad.
	Mem []byte

	// memSize is the primary region's size; Mem beyond it is the pad.
	memSize int

	// addrMask wraps PC and I to the variant's address range.
	addrMask uint32

	// V are the 16 general purpose registers. V[0xF] doubles as the flag
	// register and is always written after the result it describes.
	V [16]byte

	// I is the index register, 12 to 24 bits wide depending on variant.
	I uint32

	// PC is the program counter, advanced by 2 per fetch.
	PC uint32

	// Stack holds return addresses; SP wraps modulo 16 before use.
	Stack [16]uint32
	SP    uint32

	// Delay is the 8-bit delay timer, decremented once per frame.
	Delay byte

	// R are the permanent registers backing FN75/FN85. They survive ROM
	// sessions as 8 raw bytes on disk.
	R [8]byte

	Quirks Quirks

	// Keys holds the held state of both keypads; only CHIP-8X reads the
	// second one.
	Keys [2][16]bool

	// Interrupt, when not IntNone, halts dispatch for the rest of the
	// current frame. InputReg is the register parked by Fx0A.
	Interrupt Interrupt
	InputReg  *byte

	// FB is the working bitmap for the single-plane dialects. Multi-plane
	// and composite buffers live on the cores that use them.
	FB *Plane

	// UseTrails leaves a decaying ghost on pixels that were recently lit.
	UseTrails bool

	// Cycles counts instructions within the current frame; TargetCPF is
	// the per-frame budget; Frames counts completed frames.
	Cycles    int
	TargetCPF int
	Frames    uint64

	haltErr error
}

func newMachine(memSize int, addrMask uint32) *Machine {
	m := &Machine{
		Mem:      make([]byte, memSize+safezone),
		memSize:  memSize,
		addrMask: addrMask,
		PC:       loadOffset,
	}

	// the pad reads back as saturated bytes
	for i := memSize; i < len(m.Mem); i++ {
		m.Mem[i] = 0xFF
	}

	return m
}

// loadProgram copies a validated ROM to the load offset.
func (m *Machine) loadProgram(rom []byte) {
	copy(m.Mem[loadOffset:], rom)
}

// ReadMem returns the byte at addr, clamping out-of-range addresses to the
// safety pad.
func (m *Machine) ReadMem(addr uint32) byte {
	if int(addr) < m.memSize {
		return m.Mem[addr]
	}
	return m.Mem[len(m.Mem)-1]
}

// WriteMem stores v at addr. Out-of-range writes land on the safety pad and
// never touch the primary region.
func (m *Machine) WriteMem(addr uint32, v byte) {
	if int(addr) < m.memSize {
		m.Mem[addr] = v
		return
	}

	logging.Warnf("memory write clamped: #%06X > #%06X", addr, m.memSize-1)
	m.Mem[len(m.Mem)-1] = v
}

// ReadI reads the byte at I+off.
func (m *Machine) ReadI(off uint32) byte {
	return m.ReadMem(m.I + off)
}

// WriteI writes the byte at I+off.
func (m *Machine) WriteI(off uint32, v byte) {
	m.WriteMem(m.I+off, v)
}

// fetch reads the two instruction bytes at PC and advances it.
func (m *Machine) fetch() (hi, lo byte) {
	m.PC &= m.addrMask
	hi = m.ReadMem(m.PC)
	lo = m.ReadMem(m.PC + 1)
	m.PC += 2
	return hi, lo
}

// jump sets the program counter.
func (m *Machine) jump(addr uint32) {
	m.PC = addr & m.addrMask
}

// push saves the current PC; the stack top wraps modulo 16.
func (m *Machine) push() {
	m.Stack[m.SP&0xF] = m.PC
	m.SP++
}

// pop restores the PC saved by the matching push.
func (m *Machine) pop() {
	m.SP--
	m.PC = m.Stack[m.SP&0xF]
}

// setI assigns the index register within the variant's range.
func (m *Machine) setI(v uint32) {
	m.I = v & m.addrMask
}

// addI advances the index register within the variant's range.
func (m *Machine) addI(v uint32) {
	m.I = (m.I + v) & m.addrMask
}

// interrupt raises a halt token for the rest of the frame.
func (m *Machine) interrupt(i Interrupt) {
	m.Interrupt = i
}

// waitKey parks V[x] for Fx0A; KeyPressed resolves it.
func (m *Machine) waitKey(x int) {
	m.interrupt(IntInput)
	m.InputReg = &m.V[x]
}

// KeyPressed records a key going down and resolves a pending Fx0A wait.
func (m *Machine) KeyPressed(player, key int) {
	if key < 0 || key > 0xF {
		return
	}
	m.Keys[player&1][key] = true

	if m.Interrupt == IntInput && m.InputReg != nil {
		*m.InputReg = byte(key)
		m.InputReg = nil
		m.Interrupt = IntNone
	}
}

// KeyReleased records a key going up.
func (m *Machine) KeyReleased(player, key int) {
	if key < 0 || key > 0xF {
		return
	}
	m.Keys[player&1][key] = false
}

// keyHeld reports whether a pad key is currently down.
func (m *Machine) keyHeld(player int, key byte) bool {
	return key <= 0xF && m.Keys[player&1][key]
}

// resolveInterrupts runs at each frame boundary, before dispatch. Frame
// waits always lift; delay waits lift once the timer runs out. Input waits
// lift via KeyPressed and sound halts are permanent.
func (m *Machine) resolveInterrupts() {
	switch m.Interrupt {
	case IntFrame:
		m.Interrupt = IntNone
	case IntDelay:
		if m.Delay == 0 {
			m.Interrupt = IntNone
		}
	}
}

// tickDelay counts the delay timer down once per frame.
func (m *Machine) tickDelay() {
	if m.Delay > 0 {
		m.Delay--
	}
}

// halt records a fatal dispatch error; the loop stops but state is kept
// for inspection.
func (m *Machine) halt(err error) {
	if m.haltErr == nil {
		m.haltErr = err
	}
}

// Halted returns the error that stopped dispatch, or nil.
func (m *Machine) Halted() error {
	return m.haltErr
}

// badOpcode reports and halts on an unrecognized opcode. The PC has already
// advanced past the instruction, so it is rewound for the report.
func (m *Machine) badOpcode(hi, lo byte) {
	err := DecodeError{HI: hi, LO: lo, PC: (m.PC - 2) & m.addrMask}
	logging.Errorf("%v", err)
	m.halt(err)
}

// running is the dispatch loop continuation predicate, minus the external
// stop flag supplied by the Runner.
func (m *Machine) running() bool {
	return m.haltErr == nil && m.Interrupt == IntNone && m.Cycles < m.TargetCPF
}

/*==================================================================*/

// The ALU helpers below implement the register arithmetic shared by every
// dialect. Flag writes come strictly after the result write; several ROMs
// use VF as an operand.

func (m *Machine) aluAdd(x, y int) {
	sum := uint16(m.V[x]) + uint16(m.V[y])
	m.V[x] = byte(sum)
	m.V[0xF] = byte(sum >> 8)
}

func (m *Machine) aluSubXY(x, y int) {
	nborrow := m.V[x] >= m.V[y]
	m.V[x] -= m.V[y]
	m.V[0xF] = flag(nborrow)
}

func (m *Machine) aluSubYX(x, y int) {
	nborrow := m.V[y] >= m.V[x]
	m.V[x] = m.V[y] - m.V[x]
	m.V[0xF] = flag(nborrow)
}

func (m *Machine) aluShr(x, y int) {
	if !m.Quirks.ShiftVX {
		m.V[x] = m.V[y]
	}
	lsb := m.V[x] & 0x01
	m.V[x] >>= 1
	m.V[0xF] = lsb
}

func (m *Machine) aluShl(x, y int) {
	if !m.Quirks.ShiftVX {
		m.V[x] = m.V[y]
	}
	msb := m.V[x] >> 7
	m.V[x] <<= 1
	m.V[0xF] = msb
}

// storeBCD writes the three decimal digits of V[x] at I..I+2.
func (m *Machine) storeBCD(x int) {
	v := m.V[x]
	m.WriteI(0, v/100)
	m.WriteI(1, v/10%10)
	m.WriteI(2, v%10)
}

// storeRegs implements FN55 under the index quirks.
func (m *Machine) storeRegs(n int) {
	for i := 0; i <= n; i++ {
		m.WriteI(uint32(i), m.V[i])
	}
	m.bumpI(n)
}

// loadRegs implements FN65 under the index quirks.
func (m *Machine) loadRegs(n int) {
	for i := 0; i <= n; i++ {
		m.V[i] = m.ReadI(uint32(i))
	}
	m.bumpI(n)
}

func (m *Machine) bumpI(n int) {
	switch {
	case m.Quirks.IdxRegNoInc:
	case m.Quirks.IdxRegMinus:
		m.addI(uint32(n))
	default:
		m.addI(uint32(n) + 1)
	}
}

// setPermaRegs copies V[0..n-1] into the permanent registers. There are
// only eight slots; larger requests clamp.
func (m *Machine) setPermaRegs(n int) {
	copy(m.R[:], m.V[:minInt(n, len(m.R))])
}

// getPermaRegs copies the permanent registers back into V[0..n-1].
func (m *Machine) getPermaRegs(n int) {
	n = minInt(n, len(m.R))
	copy(m.V[:n], m.R[:n])
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
