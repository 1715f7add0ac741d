package main

import (
	"github.com/mysticpants/at/tools/atsh"
)

func main() {
	atsh.CmdAtsh.Execute()
}
