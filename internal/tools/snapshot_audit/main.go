// snapshot_audit recomputes rating aggregates from raw account snapshot
// files and prints the result as JSON. Corrupt files are reported on stderr
// and skipped.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LJ-Solana/solana-news-app-sub000/snapshot"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: snapshot_audit <account.bin> [<account.bin> ...]")
		os.Exit(2)
	}

	var bufs [][]byte
	for _, path := range os.Args[1:] {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			os.Exit(1)
		}
		if _, err := snapshot.DecodeAggregateCounters(b); err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", path, err)
		}
		bufs = append(bufs, b)
	}

	agg := snapshot.AggregateAccounts(bufs)
	out, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
