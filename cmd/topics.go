package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/corpus"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List and manage the topic keyword corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")

		c, _, err := loadCorpus(cmd)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold)
		out := cmd.OutOrStdout()
		subjects := c.Subjects()
		if subject != "" {
			subjects = []string{corpus.NormalizeSubject(subject)}
		}
		for _, s := range subjects {
			topics := c.Topics(s)
			if len(topics) == 0 {
				continue
			}
			cyan.Fprintln(out, s)
			for _, t := range topics {
				fmt.Fprintf(out, "  %-28s %d keywords\n", t.Name, len(t.Keywords))
			}
		}
		return nil
	},
}

var topicsShowCmd = &cobra.Command{
	Use:   "show <topic>",
	Short: "Show the keywords a topic resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")

		c, _, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		t := c.Lookup(subject, args[0])

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Topic:    %s\n", t.Name)
		fmt.Fprintf(out, "Subject:  %s\n", t.Subject)
		fmt.Fprintf(out, "Keywords: %s\n", strings.Join(t.Keywords, ", "))
		return nil
	},
}

var topicsAddCmd = &cobra.Command{
	Use:     "add <topic> <keyword>...",
	Short:   "Add or replace a custom topic",
	Example: `  classwatch topics add vectors magnitude direction "dot product" --subject math`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		if subject == "" {
			return fmt.Errorf("--subject is required")
		}

		_, path, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("corpus.custom_path is not configured")
		}

		topics, err := corpus.AddCustom(path, corpus.Topic{
			Subject:  subject,
			Name:     args[0],
			Keywords: args[1:],
		})
		if err != nil {
			return fmt.Errorf("save custom topic: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %q to %s (%d custom topics)\n", args[0], path, len(topics))
		return nil
	},
}

// loadCorpus returns the seed corpus with the configured custom topics
// applied, and the custom topics path.
func loadCorpus(cmd *cobra.Command) (*corpus.Corpus, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	c := corpus.Default()
	path := cfg.Corpus.CustomPath
	if path != "" {
		if err := corpus.Reload(path, c); err != nil {
			return nil, "", fmt.Errorf("load custom topics: %w", err)
		}
	}
	return c, path, nil
}

func init() {
	topicsCmd.PersistentFlags().StringP("subject", "s", "", "Subject to list, look up or add under")
	topicsCmd.AddCommand(topicsShowCmd)
	topicsCmd.AddCommand(topicsAddCmd)
}
