package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"omibyte.io/nucleus/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the supported targets",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()

		width := runewidth.StringWidth("series")
		for _, target := range targets.All() {
			width = max(width, runewidth.StringWidth(target.Series))
		}

		headerColor.Fprintf(w, "%s  %-14s  %-8s  %-4s  %-5s  %-7s  %s\n",
			pad("series", width), "cpu", "clock", "prio", "tasks", "reload", "chips")
		for _, target := range targets.All() {
			fmt.Fprintf(w, "%s  %-14s  %-8s  %-4d  %-5d  %-7d  %s\n",
				pad(target.Series, width),
				target.Cpu,
				fmt.Sprintf("%dMHz", target.ClockHz/1000000),
				target.PriorityBits,
				target.MaxTasks,
				target.Reload(),
				strings.Join(target.Chips, ","))
		}
	},
}
