package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"facerelay/internal/bot"
	"facerelay/internal/config"
	"facerelay/internal/store"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Manage face bindings",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered faces",
	RunE:  runFacesList,
}

var facesAddCmd = &cobra.Command{
	Use:   "add <number> <face name> <source chat>",
	Short: "Register a face",
	Long: `Register a face for an owner. Without --destination a one-time auth
code is generated; the owner completes the handshake by posting the
!fconnect command in the destination chat.`,
	Args: cobra.ExactArgs(3),
	RunE: runFacesAdd,
}

var facesDeleteCmd = &cobra.Command{
	Use:   "delete <number> <face name>",
	Short: "Delete a face binding",
	Args:  cobra.ExactArgs(2),
	RunE:  runFacesDelete,
}

var facesDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every face binding and wipe the recognition backend",
	RunE:  runFacesDeleteAll,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesAddCmd)
	facesCmd.AddCommand(facesDeleteCmd)
	facesCmd.AddCommand(facesDeleteAllCmd)

	facesAddCmd.Flags().String("destination", "", "Destination chat id (skips the handshake)")
}

func runFacesList(cmd *cobra.Command, args []string) error {
	application, err := buildApp(config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	faces, err := application.faces.ListAll(context.Background())
	if err != nil {
		return fmt.Errorf("listing faces: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OWNER\tFACE\tSOURCE\tDESTINATION\tSTATUS")
	for _, face := range faces {
		status := "bound"
		if face.AuthCode != "" {
			status = "pending handshake"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			face.OwnerID, face.FaceName, face.SourceID, face.DestinationID, status)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	fmt.Printf("\n%d face(s)\n", len(faces))
	return nil
}

func runFacesAdd(cmd *cobra.Command, args []string) error {
	application, err := buildApp(config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	destination := mustGetString(cmd, "destination")
	face, err := application.commands.Add(context.Background(), args[0], args[1], args[2], destination)
	if err != nil {
		return fmt.Errorf("adding face: %w", err)
	}

	fmt.Printf("Face %q registered for %s\n", face.FaceName, face.OwnerID)
	if face.AuthCode != "" {
		fmt.Printf("Handshake command for the destination chat:\n  !fconnect %s %s\n", face.FaceName, face.AuthCode)
	}
	return nil
}

func runFacesDelete(cmd *cobra.Command, args []string) error {
	application, err := buildApp(config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.commands.Delete(context.Background(), bot.ContactID(args[0]), args[1]); err != nil {
		return fmt.Errorf("deleting face: %w", err)
	}
	fmt.Printf("Face %q deleted\n", args[1])
	return nil
}

func runFacesDeleteAll(cmd *cobra.Command, args []string) error {
	application, err := buildApp(config.Load())
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()
	faces, err := application.faces.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing faces: %w", err)
	}
	if len(faces) == 0 {
		fmt.Println("No faces registered")
	}

	bar := progressbar.NewOptions(len(faces),
		progressbar.OptionSetDescription("Deleting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	err = application.commands.DeleteAll(ctx, func(store.RecognizedFace) {
		_ = bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("deleting faces: %w", err)
	}

	fmt.Printf("\nDeleted %d face(s) and wiped the recognition backend\n", len(faces))
	return nil
}
