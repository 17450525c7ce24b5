package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/config"
	"kada-commute/internal/service"
)

// tail печатает поток логов сервера в терминал, как консоль бота.
func newTailCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Показать поток логов сервера",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			cfg.ApplyLogLevel()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			api := commuteapi.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
			err = api.StreamLogs(ctx, commuteapi.StreamHandler{
				OnOpen: func() {
					fmt.Fprintln(out, service.TextStreamConnected)
				},
				OnMessage: func(line string) {
					fmt.Fprintln(out, line)
				},
			})

			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
				return nil
			case err != nil:
				return fmt.Errorf("поток логов: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "YAML файл конфигурации")
	return cmd
}
