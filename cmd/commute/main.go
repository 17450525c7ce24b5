package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "commute",
		Short:         "Клиент учета рабочего времени",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newBotCommand(), newTailCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
