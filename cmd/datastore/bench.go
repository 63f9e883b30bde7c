package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/datastore/pkg/equal"
	"github.com/delaneyj/datastore/router"
	"github.com/delaneyj/datastore/store"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const (
	itersKey = "iters"
	asyncKey = "async"
)

var (
	ww = []int{1, 10, 100}
	hh = []int{1, 10, 100}
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure propagation latency through chains of computed blocks",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Updates per graph",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  asyncKey,
				Usage: "Write through SetStateAsync and flush each update",
			},
			verboseFlag(),
		},
		Action: bench,
	}
}

func bench(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool(verboseKey))
	iters := int(cmd.Uint(itersKey))
	async := cmd.Bool(asyncKey)
	if iters == 0 {
		return errors.New("bench: iters must be at least 1")
	}

	start := time.Now()
	logger.Info("bench started", "iters", iters, "async", async)
	defer func() {
		logger.Info("bench finished", "took", time.Since(start))
	}()

	title := "Router propagation"
	if async {
		title += " (async)"
	}
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"graph", "blocks", "runs", "avg", "min", "p75", "p99", "max", "state", "digest"})

	for _, w := range ww {
		for _, h := range hh {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runChains(w, h, iters, async, logger)
			if err != nil {
				return fmt.Errorf("propagate %d * %d: %w", w, h, err)
			}
			calc := res.tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					humanize.Comma(int64(w * h)),
					humanize.Comma(int64(res.runs)),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
					humanize.Bytes(uint64(res.stateBytes)),
					fmt.Sprintf("%016x", res.digest),
				},
			})
		}
	}

	tbl.Render()
	return nil
}

type benchResult struct {
	tach       *tachymeter.Tachymeter
	runs       float64
	digest     uint64
	stateBytes int
}

// chainKey names the output of block j in chain i. Chains read "src".
func chainKey(i, j int) string {
	if j < 0 {
		return "src"
	}
	return fmt.Sprintf("c%d_%d", i, j)
}

// buildChains wires width chains of height blocks each, every block adding
// one to its input.
func buildChains(width, height int, opts ...router.Option) (*store.Store, *router.Router) {
	s := store.New()
	s.SetState(map[string]any{"src": 0}, store.Immediate)

	var r *router.Router
	blocks := make([]*router.Block, 0, width*height)
	for i := 0; i < width; i++ {
		for j := 0; j < height; j++ {
			in, out := chainKey(i, j-1), chainKey(i, j)
			blocks = append(blocks, &router.Block{
				Name: out,
				In:   []string{in},
				Out:  []string{out},
				Exec: func(p *router.Pending) error {
					v, _ := s.GetState()[in].(int)
					_, err := r.SetState(map[string]any{out: v + 1}, p)
					return err
				},
			})
		}
	}
	r = router.New(s, blocks, nil, opts...)
	return s, r
}

func runChains(width, height, iters int, async bool, logger *slog.Logger) (*benchResult, error) {
	reg := prometheus.NewRegistry()
	s, r := buildChains(width, height,
		router.WithLogger(logger),
		router.WithMetrics(router.NewMetrics(reg)),
	)

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for n := 1; n <= iters; n++ {
		update := map[string]any{"src": n}
		start := time.Now()
		if async {
			r.SetStateAsync(update)
			if err := r.Flush(); err != nil {
				return nil, err
			}
		} else if _, err := r.SetState(update, nil); err != nil {
			return nil, err
		}
		tach.AddTime(time.Since(start))
	}

	snap := s.Snapshot()
	if want := chainState(width, height, iters); !equal.Same(want, snap) {
		return nil, errors.New("chains did not settle on the expected state")
	}

	runs, err := counterValue(reg, "datastore_router_block_runs_total")
	if err != nil {
		return nil, err
	}
	digest, size := stateDigest(snap)
	return &benchResult{tach: tach, runs: runs, digest: digest, stateBytes: size}, nil
}

// chainState is the state buildChains reaches once src is n.
func chainState(width, height, n int) map[string]any {
	state := map[string]any{"src": n}
	for i := 0; i < width; i++ {
		for j := 0; j < height; j++ {
			state[chainKey(i, j)] = n + j + 1
		}
	}
	return state
}

func counterValue(reg *prometheus.Registry, name string) (float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total, nil
	}
	return 0, nil
}

// stateDigest hashes the top level of state in key order, so two runs of
// the same graph produce the same digest.
func stateDigest(state map[string]any) (uint64, int) {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	size := 0
	for _, k := range keys {
		n, _ := d.WriteString(fmt.Sprintf("%s=%v;", k, state[k]))
		size += n
	}
	return d.Sum64(), size
}
