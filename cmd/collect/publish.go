package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var publishFlags struct {
	promptsFile string
	pull        bool
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the corpus to object storage, or pull the published copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := buildPublisher(cfg)
		if err != nil {
			return err
		}
		if pub == nil {
			return errors.New("storage is not configured: set storage.endpoint and storage.bucket")
		}

		path := publishFlags.promptsFile
		if path == "" {
			path = cfg.Collect.CorpusPath
		}

		out := cmd.OutOrStdout()
		if publishFlags.pull {
			n, err := pub.Pull(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pulled %d prompts into %s\n", n, path)
			return nil
		}

		res, err := pub.Publish(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d prompts (%d bytes) to %s\n", res.Records, res.Size, res.URL)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishFlags.promptsFile, "prompts-file", "", "corpus file (default from config)")
	publishCmd.Flags().BoolVar(&publishFlags.pull, "pull", false, "download the published corpus instead")
}
