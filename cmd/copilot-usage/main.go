package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sdpower/copilot-usage/internal/commands"
)

var Version = "dev"

func main() {
	ctx := context.Background()

	rootCmd := commands.NewUsageCommand()
	rootCmd.AddCommand(
		commands.NewVersionCommand(Version),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if commands.IsConfigError(err) {
			fmt.Fprintf(os.Stderr, "[!] Error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "[!] Critical Error: %v\n", err)
		}
		os.Exit(1)
	}
}
