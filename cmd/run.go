package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"facerelay/internal/bot"
	"facerelay/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot without the admin web server",
	Long: `Start only the chat bot. The login QR code is printed to the log;
use serve to also expose the admin HTTP API.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	bridge, err := buildBridge(cfg)
	if err != nil {
		return err
	}
	relay := bot.New(bridge, application.scopes, application.faces, application.backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("bot stopped: %w", err)
	}
	return nil
}
