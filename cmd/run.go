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

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/sqweek/dialog"

	"github.com/varia8/varia8/chip8"
	"github.com/varia8/varia8/internal/logging"
	"github.com/varia8/varia8/platform"
)

var (
	flagSpeed  float64
	flagTrails bool
	flagLog    string
)

// runCmd runs the emulator until the window is closed.
var runCmd = &cobra.Command{
	Use:   "run [path/to/rom]",
	Short: "run a ROM in the varia8 emulator",
	Long: "Load a ROM and emulate it. The dialect is selected by file " +
		"extension: .ch8 .c8e .c8x .sc8 .xo8 .mc8. Without an argument an " +
		"open-file dialog is shown.",
	Args: cobra.MaximumNArgs(1),
	RunE: runEmulator,
}

func init() {
	runCmd.Flags().Float64Var(&flagSpeed, "speed", 1.0, "framerate multiplier")
	runCmd.Flags().BoolVar(&flagTrails, "trails", false, "pixel ghosting effect")
	runCmd.Flags().StringVar(&flagLog, "log", "", "log file to flush entries to")
}

func runEmulator(cmd *cobra.Command, args []string) error {
	if flagLog != "" {
		if err := logging.SetFile(flagLog); err != nil {
			// keep running with the in-memory ring only
			fmt.Fprintln(os.Stderr, err)
		}
	}

	romPath, err := pickROM(args)
	if err != nil {
		return err
	}

	plat, err := platform.New("varia8")
	if err != nil {
		return err
	}
	defer plat.Close()

	// a missing audio device is not fatal; the emulator runs silent
	var sink chip8.AudioSink
	sampleRate := 0
	audio, err := platform.NewAudio()
	if err != nil {
		logging.Errorf("audio disabled: %v", err)
	} else {
		defer audio.Close()
		sink = audio
		sampleRate = audio.SampleRate()
	}

	core, err := chip8.LoadFile(romPath, chip8.Config{
		Video:      plat,
		SampleRate: sampleRate,
		RateMult:   flagSpeed,
		Trails:     flagTrails,
	})
	if err != nil {
		return err
	}

	logging.Infof("loaded %s as %s", romPath, core.Name())

	regsPath := romPath + ".rpl"
	loadPermaRegs(core.Machine(), regsPath)

	runner := chip8.NewRunner(core, sink, flagSpeed)
	runner.Start()

	plat.SetTitle("varia8 — " + core.Name())

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	lastTitle := time.Now()
	for platform.ProcessEvents(runner) {
		<-ticker.C

		if err := plat.Draw(); err != nil {
			logging.Warnf("draw: %v", err)
		}

		if time.Since(lastTitle) >= time.Second {
			plat.SetTitle(title(core, runner))
			lastTitle = time.Now()
		}
	}

	runner.Stop()
	savePermaRegs(core.Machine(), regsPath)

	if err := logging.Flush(0); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	return nil
}

// pickROM resolves the ROM path from the arguments or an open dialog.
func pickROM(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	return dialog.File().
		Title("Load CHIP-8 ROM").
		Filter("CHIP-8 ROMs", "ch8", "c8e", "c8x", "sc8", "xo8", "mc8").
		Filter("All Files", "*").
		Load()
}

// title folds the overlay's framerate line into the window title.
func title(core chip8.Core, runner *chip8.Runner) string {
	base := "varia8 — " + core.Name()

	if err := core.Machine().Halted(); err != nil {
		return base + " — halted: " + err.Error()
	}

	overlay := runner.Overlay()
	if i := strings.IndexByte(overlay, '\n'); i > 0 {
		return base + " — " + overlay[:i]
	}
	return base
}

// loadPermaRegs restores the eight permanent registers persisted next to
// the ROM.
func loadPermaRegs(m *chip8.Machine, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	copy(m.R[:], raw)
}

// savePermaRegs persists the permanent registers as 8 raw bytes.
func savePermaRegs(m *chip8.Machine, path string) {
	if err := os.WriteFile(path, m.R[:], 0o644); err != nil {
		logging.Warnf("persist registers: %v", err)
	}
}
