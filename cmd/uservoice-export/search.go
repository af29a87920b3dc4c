package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search archived notes",
	Example: `  uservoice-export search "dark mode"
  uservoice-export search 'Tags:UI +upvote'
  uservoice-export search -n 50 export~`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, idx, err := openConfiguredArchive(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		defer idx.Close()

		query := strings.Join(args, " ")
		results, err := idx.Search(query, searchLimit)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found")
			return nil
		}

		fmt.Printf("\nFound %d results:\n\n", len(results))
		for i, result := range results {
			fmt.Printf("%d. %s\n", i+1, result.Title)
			if result.Person != "" || result.Email != "" {
				fmt.Printf("   By: %s <%s>\n", result.Person, result.Email)
			}
			if result.Tags != "" {
				fmt.Printf("   Tags: %s\n", result.Tags)
			}
			fmt.Printf("   Run: %s\n", result.RunID)
			fmt.Printf("   Score: %.3f\n", result.Score)
			if snippets, ok := result.Fragments["Text"]; ok && len(snippets) > 0 {
				fmt.Printf("   Preview: %s\n", snippets[0])
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results")
}
