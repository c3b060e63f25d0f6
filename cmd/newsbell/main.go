// Command newsbell watches a fixed set of anime and manga news sites and
// notifies about articles published since the last run.
//
// Usage:
//
//	newsbell run              Run the refresh loop (and the API, if configured)
//	newsbell once             Run a single cycle and exit
//	newsbell serve            Serve the API without the refresh timer
//	newsbell tui              Browse cached articles
//	newsbell ack              Reset the unread counter
//	newsbell status           Print checkpoints, cache size and unread count
//	newsbell events           JSONL event log viewer
//	newsbell sources          List and configure sources
package main

import (
	"fmt"
	"os"

	_ "time/tzdata"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "newsbell:", err)
		os.Exit(1)
	}
}
