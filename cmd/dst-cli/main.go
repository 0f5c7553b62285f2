package main

import (
	"dstclient/cmd/dst-cli/commands"
	"dstclient/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
