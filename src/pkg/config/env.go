package config

import (
	"fmt"
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// MissingEnvVars returns the names from names that are unset or empty.
func MissingEnvVars(names ...string) (missing []string) {
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

/*
CheckIfEnvVarsPresent ends the program when any of names is not set.
Call it first thing in main so a missing secret fails before any work.
*/
func CheckIfEnvVarsPresent(names ...string) {
	missing := MissingEnvVars(names...)
	if len(missing) == 0 {
		if len(names) > 0 {
			tl.Log(tl.Verbose, palette.Green, "%d required environment variable(s) present", len(names))
		}
		return
	}
	err := fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	xerr.QuitIfError(err, "check environment")
}
