package main

import (
	"os"

	panelctlcmder "github.com/papercomputeco/panelctl/cmd/panelctl"
)

func main() {
	cmd := panelctlcmder.NewPanelctlCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
