package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"

	"tourneyforge.dev/internal/rating"
	"tourneyforge.dev/internal/store"
)

// cmd/tape is the CLI replacement for the original replay verifier,
// reformulated around C5's BuildTape instead of a snapshot+event-log
// digest check: "build" writes tape.json from a tournament directory's
// round files, "verify" recomputes it in memory and diffs against the
// tape.json already on disk.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dir := fs.String("dir", "", "tournament directory containing tournament.json and round-NN.json files")
	_ = fs.Parse(os.Args[2:])

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "missing -dir")
		os.Exit(2)
	}

	st, err := store.New(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}

	switch cmd {
	case "build":
		runBuild(st)
	case "verify":
		runVerify(st)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tape <build|verify> -dir <tournament dir>")
}

func runBuild(st *store.Store) {
	tape, err := st.BuildTape(rating.DefaultParams())
	if err != nil {
		fmt.Fprintln(os.Stderr, "build tape:", err)
		os.Exit(1)
	}
	if err := st.WriteTape(tape); err != nil {
		fmt.Fprintln(os.Stderr, "write tape:", err)
		os.Exit(1)
	}
	fmt.Printf("tape ok: events=%d\n", len(tape.Events))
}

func runVerify(st *store.Store) {
	existing, err := readExistingTape(st)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read existing tape.json:", err)
		os.Exit(1)
	}
	recomputed, err := st.BuildTape(rating.DefaultParams())
	if err != nil {
		fmt.Fprintln(os.Stderr, "rebuild tape:", err)
		os.Exit(1)
	}
	if !reflect.DeepEqual(existing, recomputed) {
		fmt.Fprintln(os.Stderr, "tape.json does not match a fresh replay")
		os.Exit(1)
	}
	fmt.Printf("tape verify ok: events=%d\n", len(recomputed.Events))
}

func readExistingTape(st *store.Store) (store.Tape, error) {
	b, err := os.ReadFile(st.Dir() + "/tape.json")
	if err != nil {
		return store.Tape{}, err
	}
	var t store.Tape
	if err := json.Unmarshal(b, &t); err != nil {
		return store.Tape{}, err
	}
	return t, nil
}
