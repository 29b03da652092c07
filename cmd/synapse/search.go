package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/synapse"
	synapsehttp "github.com/fwojciec/synapse/http"
)

const snippetLength = 120

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	filter := synapse.ItemFilter{Query: c.Query, Limit: c.Limit, Offset: c.Offset}
	if c.Type != "" {
		typ := synapse.ItemType(strings.ToUpper(c.Type))
		if !typ.Valid() {
			err := synapse.Errorf(synapse.EINVALID, "invalid item type %q", c.Type)
			fmt.Fprintf(deps.Stderr, "error: %s\n", synapse.ErrorMessage(err))
			return err
		}
		filter.Type = &typ
	}

	session, err := deps.Items.OpenSession(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", synapse.ErrorMessage(err))
		return err
	}
	defer session.Close()

	items, err := session.FindItems(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", synapse.ErrorMessage(err))
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(deps.Stdout, synapsehttp.NoResultsMessage)
		return nil
	}

	for _, item := range items {
		fmt.Fprintf(deps.Stdout, "%s  [%s]  %s\n", item.CreatedAt.Local().Format("2006-01-02 15:04"), item.Type, item.Title)
		fmt.Fprintf(deps.Stdout, "    %s\n", item.URL)
		if c.Full {
			fmt.Fprintf(deps.Stdout, "    %s\n", item.Content)
		} else {
			fmt.Fprintf(deps.Stdout, "    %s\n", snippet(item.Content, snippetLength))
		}
	}
	return nil
}

// snippet shortens s to at most n runes, marking the cut with an ellipsis.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
