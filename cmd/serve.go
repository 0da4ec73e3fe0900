package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"facerelay/internal/bot"
	"facerelay/internal/config"
	"facerelay/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot together with the admin web server",
	Long: `Start the full Face Relay service: the chat bot connected through
the bridge plus the admin HTTP API for managing faces and chats.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port for the admin API")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind the admin API to")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	server := web.NewServer(host, port, web.Dependencies{
		Scopes:    application.scopes,
		Faces:     application.faces,
		Commands:  application.commands,
		Transport: bridge,
		State:     relay,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	go func() {
		if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Bot stopped: %v", err)
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Starting Face Relay admin API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
