package main

import (
	"fmt"

	"github.com/fwojciec/synapse"
	"github.com/fwojciec/synapse/capture"
)

// Run executes the capture command. The capture runs inline and either
// prints the stored item or reports why it was rejected.
func (c *CaptureCmd) Run(deps *Dependencies) error {
	session, err := deps.Items.OpenSession(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", synapse.ErrorMessage(err))
		return err
	}
	defer session.Close()

	item, outcome, err := deps.Capture.CaptureSync(deps.Ctx, session, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", item.Content)
		return err
	}

	verb := "Captured"
	if outcome == capture.OutcomeSkipped {
		verb = "Already captured"
	}
	fmt.Fprintf(deps.Stdout, "%s [%s] %s\n", verb, item.Type, item.Title)
	fmt.Fprintf(deps.Stdout, "  id:  %s\n", item.ID)
	fmt.Fprintf(deps.Stdout, "  url: %s\n", item.URL)
	return nil
}
