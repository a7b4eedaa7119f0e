package main

import (
	"fmt"
	"io"
	"strings"

	"livecode/internal/languages"
	"livecode/internal/workspace"

	"github.com/spf13/cobra"
)

// treeCmd prints a workspace tree
var treeCmd = &cobra.Command{
	Use:   "tree [dir]",
	Short: "Print a workspace tree (the starter tree when no dir is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

// languagesCmd lists supported languages
var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, lang := range languages.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-12s %s\n", lang.ID, lang.Name, lang.Extension)
		}
	},
}

func runTree(cmd *cobra.Command, args []string) error {
	tree := workspace.Seed()
	if len(args) == 1 {
		var err error
		tree, err = workspace.LoadDir(args[0], maxFileBytes)
		if err != nil {
			return err
		}
	}
	printTree(cmd.OutOrStdout(), tree)
	return nil
}

func printTree(w io.Writer, tree *workspace.Tree) {
	tree.Walk(func(n workspace.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		if n.Kind == workspace.KindFolder {
			fmt.Fprintf(w, "%s%s/\n", indent, headerStyle.Render(n.Name))
			return
		}
		label := n.Name
		if lang, ok := languages.ForPath(n.Name); ok {
			label += " " + mutedStyle.Render("("+lang.Name+")")
		}
		fmt.Fprintf(w, "%s%s\n", indent, label)
	})
}
