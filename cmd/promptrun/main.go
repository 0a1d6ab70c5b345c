package main

import (
	"os"

	historycmder "github.com/promptworksco/promptrun/cmd/promptrun/history"
	runcmder "github.com/promptworksco/promptrun/cmd/promptrun/run"
)

var version = "0.2.0"

func main() {
	rootCmd := runcmder.NewRunCmd()
	rootCmd.Version = version
	rootCmd.AddCommand(historycmder.NewHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
