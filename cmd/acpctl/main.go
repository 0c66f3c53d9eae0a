package main

import (
	"os"

	"github.com/alfanzaky/acpagent/cmd/acpctl/commands"
)

func main() {
	os.Exit(commands.Execute())
}
