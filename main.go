// meshcrack recovers MeshCore hashtag room names from captured group text packets.
package main

import (
	"context"
	"os"

	"github.com/unclesp1d3r/meshcrack/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
