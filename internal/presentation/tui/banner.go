package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the formbot banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Indigo to rose, one step per line
	lines := []struct{ text, color string }{
		{"   __                      _           _   ", "#818cf8"},
		{"  / _| ___  _ __ _ __ ___ | |__   ___ | |_ ", "#a78bfa"},
		{" | |_ / _ \\| '__| '_ ` _ \\| '_ \\ / _ \\| __|", "#c084fc"},
		{" |  _| (_) | |  | | | | | | |_) | (_) | |_ ", "#e879f9"},
		{" |_|  \\___/|_|  |_| |_| |_|_.__/ \\___/ \\__|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" v"+version).Faint())
	fmt.Fprintln(w)
}
