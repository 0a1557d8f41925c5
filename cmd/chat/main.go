package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/tui"
)

var (
	serverFlag string
	styleFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Terminal client for the Gemini chat relay",
	Long: `chat is a terminal chat client. It sends every message to the relay endpoint
of a running server and renders the replies as markdown.

Examples:
  chat                                  Connect to http://localhost:8080
  chat --server http://10.0.0.2:9090    Connect to another server
  chat --style light                    Render replies with the light style`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		session := chat.NewSession(chat.NewHTTPRelay(serverFlag, nil))
		return tui.Run(session, serverFlag, styleFlag)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&serverFlag, "server", "s", "http://localhost:8080", "base URL of the chat server")
	rootCmd.Flags().StringVar(&styleFlag, "style", tui.DefaultStyle, "glamour style for replies (dark, light, dracula, notty, or a JSON file)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
