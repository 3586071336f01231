package main

import (
	"os"

	"github.com/abdul-hamid-achik/srcguard/apps/cli/cmd"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	os.Exit(cmd.Execute(version, buildTime))
}
