//go:build windows

package cmd

import (
	"os"

	"golang.org/x/sys/windows"
)

// fileWidth returns the visible width of the console window behind f, or 0
// when f is not a console.
func fileWidth(f *os.File) int {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(f.Fd()), &info); err != nil {
		return 0
	}
	return int(info.Window.Right-info.Window.Left) + 1
}
