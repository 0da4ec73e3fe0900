package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facerelay",
	Short: "A face-recognition forwarding bot for chat groups",
	Long: `Face Relay watches registered source chats for photos, recognizes
trained faces in them and forwards matching photos to the chat bound
to each face. Faces are registered and trained directly from chat.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
