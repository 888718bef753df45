package main

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/d4l-data4life/ollama-chat/pkg/export"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id> <file.json|file.txt>",
	Short: "Export a stored chat; the format follows the file extension",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return errors.Wrap(err, "invalid conversation id")
		}
		path := args[1]
		format, err := export.FormatFromPath(path)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		conversation, err := st.GetConversation(cmd.Context(), id)
		if err != nil {
			return err
		}
		messages, err := st.ListMessages(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return export.ErrEmptyHistory
		}

		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create export file")
		}
		header := export.Header{Name: conversation.Name, Model: conversation.ModelName(), ExportedAt: time.Now()}
		if err := export.Write(f, format, header, messages); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		logging.LogInfof("Chat exported to %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
