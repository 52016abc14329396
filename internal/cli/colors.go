package cli

import (
	"fmt"
	"os"
	"sync/atomic"
)

const (
	ResetCode = "\033[0m"
	BoldCode  = "\033[1m"
	DimCode   = "\033[2m"
	Red       = "\033[31m"
	Green     = "\033[32m"
	Yellow    = "\033[33m"
	Blue      = "\033[34m"
	Purple    = "\033[35m"
	Cyan      = "\033[36m"
)

var enabled atomic.Bool

func init() {
	_, noColor := os.LookupEnv("NO_COLOR")
	enabled.Store(!noColor)
}

// Enabled reports whether ANSI colors are emitted. NO_COLOR disables them.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled overrides the NO_COLOR detection, e.g. for --no-color flags.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Style wraps text in a specific color code
func Style(text string, colorCode string) string {
	if !Enabled() {
		return text
	}
	return fmt.Sprintf("%s%s%s", colorCode, text, ResetCode)
}

func CheckMark() string {
	return Style("✔", Green)
}

func Arrow() string {
	return Style("➜", Blue)
}

func CrossMark() string {
	return Style("✘", Red)
}

func WarnMark() string {
	return Style("!", Yellow)
}
