package util

import (
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

var (
	RequiredFlags    = map[*string]string{}
	PositiveIntFlags = map[*int]string{}
)

// RequiredFlag(outputDirPtr, "--out"), can also use -out and out
func RequiredFlag(flagPointer *string, cliName string) {
	RequiredFlags[flagPointer] = normalizeFlagName(cliName)
}

// PositiveFlag registers an int flag that must be > 0 when EnsureFlags runs.
func PositiveFlag(flagPointer *int, cliName string) {
	PositiveIntFlags[flagPointer] = normalizeFlagName(cliName)
}

func normalizeFlagName(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "--") {
		return s
	}
	if strings.HasPrefix(s, "-") {
		// single dash → double dash
		return "-" + s
	}
	return "--" + s
}

// EnsureFlags logs every missing or non-positive flag and exits(1) if any were found.
func EnsureFlags() {
	missing := false
	for flagPointer, cliName := range RequiredFlags {
		if flagPointer == nil || strings.TrimSpace(*flagPointer) == "" {
			tl.Log(tl.Warning, palette.YellowBold, "%s parameter is %s", cliName, "required")
			missing = true
		}
	}
	for flagPointer, cliName := range PositiveIntFlags {
		if flagPointer == nil || *flagPointer <= 0 {
			tl.Log(tl.Warning, palette.YellowBold, "%s parameter must be %s", cliName, "greater than 0")
			missing = true
		}
	}
	if missing {
		os.Exit(1)
	}
}
