package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mavrell/drumbeat/internal/config"
	"github.com/mavrell/drumbeat/pkg/corpus"
)

var parseAltWord string

var parseCmd = &cobra.Command{
	Use:   "parse <descriptor>",
	Short: "Parse a corpus descriptor and print the resulting messages",
	Long: `Parse a corpus descriptor exactly the way a run would and print the
resulting message list. The descriptor is either inline text or a path
to a corpus file. Useful for checking how a corpus splits before
starting a run.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseAltWord, "alt-word", config.DefaultConfig().Corpus.AltWord, "whole-word alternate delimiter for bulk mode")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	crp, err := corpus.Parse(args[0], corpus.Options{AltWord: parseAltWord})
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	fmt.Printf("%d message(s):\n", crp.Len())
	for i, msg := range crp.Messages() {
		fmt.Printf("%3d: %q\n", i, string(msg))
	}

	return nil
}
