package main

import (
	"bufio"
	"fmt"
	"strings"

	"livecode/internal/chat"
	"livecode/internal/clock"
	"livecode/internal/perception"

	"github.com/spf13/cobra"
)

// chatCmd starts a conversation with the assistant
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the coding assistant (one message per line, /quit to exit)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, err := perception.NewClientFromConfig(ctx, cfg.LLM, false)
	if err != nil {
		return err
	}
	conv := chat.NewConversation(client, clock.Real(), analysisPolicy(cfg))
	defer conv.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, headerStyle.Render("you> "))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		default:
			msg, err := conv.Send(ctx, line)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			style := stepStyle
			if msg.Fallback {
				style = warningStyle
			}
			fmt.Fprintln(out, style.Render(msg.Content))
		}
		fmt.Fprint(out, headerStyle.Render("you> "))
	}
	return scanner.Err()
}
