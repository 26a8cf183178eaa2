// Command ytrewind plays back YouTube live streams from any point in
// their DVR window: it locates segments by time, downloads them and
// merges them into playable excerpts.
package main

import (
	"fmt"
	"os"

	"github.com/jmylchreest/ytrewind/cmd/ytrewind/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
