package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/relaykit/anthrelay/cmd/anthrelay/chat"
	modelscmder "github.com/relaykit/anthrelay/cmd/anthrelay/models"
	servecmder "github.com/relaykit/anthrelay/cmd/anthrelay/serve"
)

func main() {
	root := &cobra.Command{
		Use:          "anthrelay",
		Short:        "Relay chat requests to the Anthropic messages API",
		SilenceUsage: true,
	}

	root.AddCommand(
		servecmder.NewServeCmd(),
		modelscmder.NewModelsCmd(),
		chatcmder.NewChatCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
