package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/models"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Send and read role-to-role messages",
}

var messageSendCmd = &cobra.Command{
	Use:   "send [from-role] [to-role] [body]",
	Short: "Send a message to a role",
	Args:  cobra.ExactArgs(3),
	RunE:  runMessageSend,
}

var messageListCmd = &cobra.Command{
	Use:   "list [role]",
	Short: "List messages addressed to a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageList,
}

var messageMarkReadCmd = &cobra.Command{
	Use:   "mark-read [message-id]",
	Short: "Mark a message as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageMarkRead,
}

var unreadOnly bool

func init() {
	messageCmd.AddCommand(messageSendCmd, messageListCmd, messageMarkReadCmd)

	messageListCmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread messages")
}

func runMessageSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	msg, err := a.board.Post(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	a.record("message.send", map[string]string{"from": args[0], "to": args[1]}, "success", "", msg.ID)

	if jsonOut {
		return printJSON(msg)
	}
	fmt.Printf("Sent message %s to %s\n", truncateID(msg.ID), msg.ToRole)
	return nil
}

func runMessageList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	msgs, err := a.board.Messages(args[0], unreadOnly)
	if err != nil {
		return err
	}

	if jsonOut {
		if msgs == nil {
			msgs = []models.Message{}
		}
		return printJSON(msgs)
	}

	if len(msgs) == 0 {
		fmt.Println("No messages")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tSENT\tREAD\tBODY")
	for _, m := range msgs {
		read := " "
		if m.Read {
			read = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(m.ID), m.FromRole, formatTime(m.CreatedAt), read, truncate(m.Body, 60))
	}
	return w.Flush()
}

func runMessageMarkRead(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	msg, err := a.board.MarkRead(args[0])
	if err != nil {
		return err
	}
	a.record("message.mark_read", map[string]string{"message_id": args[0]}, "success", "", "")

	if jsonOut {
		return printJSON(msg)
	}
	fmt.Printf("Marked %s read\n", truncateID(msg.ID))
	return nil
}
