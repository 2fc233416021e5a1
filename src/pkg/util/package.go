package util

import (
	"path"
	"runtime"
	"strings"
)

/*
GetPackageName returns the name of the package whose function called it,
e.g. "echo-middleware" for a call from inside src/pkg/echo-middleware.
*/
func GetPackageName() string {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	name := runtime.FuncForPC(pc).Name()
	// "synth-ocr/src/pkg/echo-middleware.InitializeConfig" -> "echo-middleware.InitializeConfig"
	name = path.Base(name)
	if dot := strings.Index(name, "."); dot > 0 {
		name = name[:dot]
	}
	return name
}
