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

// Package cmd wires the varia8 command line.
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// currentReleaseVersion is used to print the version the user currently
// has installed.
const currentReleaseVersion = "v0.3.0"

// rootCmd is the base for all commands.
var rootCmd = &cobra.Command{
	Use:   "varia8 [command]",
	Short: "varia8 is a multi-variant CHIP-8 emulator",
	Long: "varia8 emulates the CHIP-8 family of virtual machines: " +
		"CHIP-8, CHIP-8E, CHIP-8X, SCHIP-LEGACY, XO-CHIP and MEGACHIP. " +
		"The dialect is picked from the ROM file extension.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Unknown command. Try `varia8 help` for more information")
	},
}

func init() {
	// SDL needs the main OS thread
	runtime.LockOSThread()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs varia8 according to the user's command/subcommand/flags.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
