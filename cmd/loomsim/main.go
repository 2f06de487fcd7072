// Package main runs a randomized convergence simulation over replicated
// text buffers. It spins up N replicas, interleaves random edits with
// randomized operation delivery, and verifies that every replica settles
// on identical contents.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/loomtext/loom/internal/engine/buffer"
	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
	"github.com/loomtext/loom/internal/engine/wire"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	replicas int
	rounds   int
	seed     int64
	verbose  bool
	wireTrip bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	rng := rand.New(rand.NewSource(opts.seed))

	bufs := make([]*buffer.Buffer, opts.replicas)
	for i := range bufs {
		bufs[i] = buffer.New(clock.ReplicaID(i+1), "the quick brown fox jumps over the lazy dog\n")
	}

	for round := 0; round < opts.rounds; round++ {
		i := rng.Intn(len(bufs))
		r, text := randomEdit(rng, bufs[i])
		if _, err := bufs[i].Edit([]buffer.Range{r}, text); err != nil {
			fmt.Fprintf(os.Stderr, "Error: replica %d edit: %v\n", i+1, err)
			return 1
		}
		if opts.verbose {
			fmt.Printf("round %3d: replica %d replaced [%d,%d) with %q\n",
				round, i+1, r.Start, r.End, text)
		}

		// Gossip between a random pair, shuffled and with duplicates, the
		// way an unreliable transport would deliver.
		if rng.Intn(3) == 0 {
			src, dst := rng.Intn(len(bufs)), rng.Intn(len(bufs))
			if src == dst {
				continue
			}
			if err := deliver(rng, bufs[src], bufs[dst], opts.wireTrip); err != nil {
				fmt.Fprintf(os.Stderr, "Error: deliver %d->%d: %v\n", src+1, dst+1, err)
				return 1
			}
		}
	}

	// Full mesh sync, then check convergence.
	for i := range bufs {
		for j := range bufs {
			if i == j {
				continue
			}
			if err := deliver(rng, bufs[i], bufs[j], opts.wireTrip); err != nil {
				fmt.Fprintf(os.Stderr, "Error: final sync %d->%d: %v\n", i+1, j+1, err)
				return 1
			}
		}
	}

	want := bufs[0].Text()
	for i, b := range bufs {
		if b.Text() != want {
			fmt.Fprintf(os.Stderr, "DIVERGED: replica %d disagrees with replica 1\n", i+1)
			fmt.Fprintf(os.Stderr, "replica 1: %q\n", want)
			fmt.Fprintf(os.Stderr, "replica %d: %q\n", i+1, b.Text())
			return 1
		}
	}

	sum := bufs[0].Summary()
	fmt.Printf("converged: %d replicas, %d rounds, seed %d\n", opts.replicas, opts.rounds, opts.seed)
	fmt.Printf("final text: %d bytes, %d chars, %d lines\n", sum.Bytes, sum.Chars, sum.Lines+1)
	if opts.verbose {
		fmt.Printf("---\n%s---\n", want)
	}
	return 0
}

// deliver sends every operation dst has not seen from src, shuffled and
// duplicated. With wireTrip set, each operation round-trips through the
// JSON codec first.
func deliver(rng *rand.Rand, src, dst *buffer.Buffer, wireTrip bool) error {
	ops := src.EditsSince(dst.Version())
	if len(ops) == 0 {
		return nil
	}
	ops = append(ops, ops[rng.Intn(len(ops))])
	rng.Shuffle(len(ops), func(a, b int) { ops[a], ops[b] = ops[b], ops[a] })

	if wireTrip {
		for i := range ops {
			data, err := wire.EncodeOperation(ops[i])
			if err != nil {
				return err
			}
			decoded, err := wire.DecodeOperation(data)
			if err != nil {
				return err
			}
			ops[i] = decoded
		}
	}
	return dst.ApplyOps(ops)
}

// randomEdit picks a random replacement valid for the buffer's current
// contents. Offsets stay on byte boundaries because the alphabet is
// ASCII.
func randomEdit(rng *rand.Rand, b *buffer.Buffer) (buffer.Range, string) {
	const letters = "abcdefghijklmnopqrstuvwxyz \n"
	n := int(b.Len())
	start := 0
	if n > 0 {
		start = rng.Intn(n + 1)
	}
	end := start
	if n > start && rng.Intn(2) == 0 {
		end = start + rng.Intn(n-start+1)
	}
	var text string
	if rng.Intn(4) != 0 {
		out := make([]byte, 1+rng.Intn(6))
		for i := range out {
			out[i] = letters[rng.Intn(len(letters))]
		}
		text = string(out)
	}
	return buffer.Range{Start: rope.ByteOffset(start), End: rope.ByteOffset(end)}, text
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.IntVar(&opts.replicas, "replicas", 3, "Number of replicas to simulate")
	flag.IntVar(&opts.replicas, "n", 3, "Number of replicas to simulate (shorthand)")
	flag.IntVar(&opts.rounds, "rounds", 200, "Number of edit rounds")
	flag.Int64Var(&opts.seed, "seed", 1, "Random seed")
	flag.BoolVar(&opts.verbose, "verbose", false, "Print every edit")
	flag.BoolVar(&opts.verbose, "v", false, "Print every edit (shorthand)")
	flag.BoolVar(&opts.wireTrip, "wire", false, "Round-trip operations through the JSON codec")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "loomsim - replicated buffer convergence simulator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: loomsim [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loomsim                     Run with defaults\n")
		fmt.Fprintf(os.Stderr, "  loomsim -n 5 -rounds 1000   Five replicas, long run\n")
		fmt.Fprintf(os.Stderr, "  loomsim -wire -seed 42      Exercise the JSON codec\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("loomsim %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	if opts.replicas < 2 {
		fmt.Fprintln(os.Stderr, "Error: need at least 2 replicas")
		os.Exit(1)
	}
	if opts.rounds < 1 {
		fmt.Fprintln(os.Stderr, "Error: need at least 1 round")
		os.Exit(1)
	}
	return opts
}
