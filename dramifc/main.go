// Command dramifc replays memory traces through a DRAM bridge.
package main

import (
	"github.com/sarchlab/dramifc/dramifc/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
