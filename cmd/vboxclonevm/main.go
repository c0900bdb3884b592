package main

import (
	"github.com/mjshashank/vboxclonevm/internal/cli"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cli.SetVersion(Version, BuildTime)
	cli.Execute()
}
