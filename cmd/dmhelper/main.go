package main

import (
	"fmt"
	"os"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	ExtensionName string = "dmhelper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
