package main

import (
	"fmt"
	"os"

	"alpha/internal/ipc"
)

func main() {
	cmd := ipc.CmdTrigger
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case ipc.CmdTrigger, ipc.CmdStop:
	default:
		fmt.Println("usage: alpha-ctl [trigger|stop]")
		os.Exit(2)
	}

	if err := ipc.SendCommand(cmd); err != nil {
		fmt.Println("alpha-daemon not running:", err)
		os.Exit(1)
	}
}
