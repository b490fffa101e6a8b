// Command seed fills a kopa database with random text for load testing.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/kopa/internal/datadir"
	"github.com/yiblet/kopa/internal/store/dbstore"
)

var words = strings.Fields(`
the be to of and a in that have I it for not on with he as you do at this but
his by from they we say her she or an will my one all would there their what
so up out if about who get which go me when make can like time no just him
know take people into year your good some could them see other than then now
look only come its over think also back after use two how our work first well
way even new want because any these give day most us code file copy paste
text data system user program function error debug test build run server
client network database query hello world foo bar baz example sample demo
project module`)

const (
	minLength = 20
	maxLength = 500
	spread    = 24 * time.Hour
)

type args struct {
	DataDir string `arg:"--data-dir" help:"Data directory (default: kopa's data directory)"`
	Count   int    `arg:"-n,--count" default:"100000" help:"Entries to insert"`
	Batch   int    `arg:"-b,--batch" default:"5000" help:"Entries per transaction"`
	Seed    uint64 `arg:"--seed" help:"Random seed (default: time based)"`
}

func (args) Description() string {
	return "seed - insert random entries into a kopa database"
}

// randomWords returns space-separated words totalling at least n bytes.
func randomWords(rng *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n + 16)
	for b.Len() < n {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(words[rng.IntN(len(words))])
	}
	return b.String()
}

func makeBatch(rng *rand.Rand, now time.Time, n int) []dbstore.BatchEntry {
	batch := make([]dbstore.BatchEntry, n)
	for i := range batch {
		batch[i] = dbstore.BatchEntry{
			Content:    randomWords(rng, minLength+rng.IntN(maxLength-minLength+1)),
			ObservedAt: now.Add(-time.Duration(rng.Int64N(int64(spread) + 1))),
		}
	}
	return batch
}

func run(ctx context.Context, a args) error {
	if a.Count <= 0 || a.Batch <= 0 {
		return fmt.Errorf("count and batch must be positive")
	}
	seed := a.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	dir, err := datadir.New(a.DataDir)
	if err != nil {
		return err
	}
	st, err := dbstore.NewSQLiteStore(ctx, dir.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	fmt.Printf("Seeding %s\n", st.Path())
	now := time.Now()
	start := now
	for done := 0; done < a.Count; {
		n := min(a.Batch, a.Count-done)
		if err := st.AppendBatch(ctx, makeBatch(rng, now, n)); err != nil {
			return err
		}
		done += n
		fmt.Printf("Progress: %d/%d\n", done, a.Count)
	}

	total, err := st.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d entries in %s; database now holds %d\n", a.Count, time.Since(start).Round(time.Millisecond), total)
	return nil
}

func main() {
	var a args
	arg.MustParse(&a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
