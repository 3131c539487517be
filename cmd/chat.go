package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fletescerealeros/fletes/core/classify"
	"github.com/fletescerealeros/fletes/core/conversation"
	"github.com/fletescerealeros/fletes/core/geo"
	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/match"
	"github.com/fletescerealeros/fletes/core/proposal"
	"github.com/fletescerealeros/fletes/infra/storage"
)

var chatPhone string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long:  "Runs an in-memory conversation loop without a broker. Useful for trying out the classifier and the matching engine.",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatPhone, "phone", "5492396000000", "phone number to impersonate")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	gaz := geo.Defaults()
	st := storage.NewMemory()
	handler := conversation.New(
		st,
		classify.NewRuleEngine(gaz, logger.Nop{}),
		match.NewScorer(gaz, logger.Nop{}),
		proposal.New(st, logger.Nop{}),
		nil, logger.Nop{},
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Escribí tu mensaje (Ctrl-D para salir).")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		res, err := handler.Handle(cmd.Context(), conversation.Inbound{Phone: chatPhone, Text: text})
		if err != nil {
			return err
		}
		if res.Reply != "" {
			fmt.Fprintln(out, res.Reply)
		}
		for _, n := range res.Notifications {
			fmt.Fprintf(out, "[aviso a %s] %s\n", n.Phone, n.Text)
		}
	}
	return scanner.Err()
}
