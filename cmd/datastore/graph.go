package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/delaneyj/datastore/cmd/datastore/templates"
	"github.com/delaneyj/datastore/router"
	"github.com/delaneyj/datastore/store"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatKey = "format"
	touchKey  = "touch"
)

var errNoGraphFile = errors.New("graph: block file argument is required")

type graphFile struct {
	Title  string      `yaml:"title"`
	Blocks []blockDef `yaml:"blocks"`
}

type blockDef struct {
	Name string   `yaml:"name"`
	In   []string `yaml:"in"`
	Out  []string `yaml:"out"`
}

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Show the depths of the blocks in a YAML block file",
		ArgsUsage: "<blocks.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  formatKey,
				Usage: "Output format, table or dot",
				Value: "table",
			},
			&cli.StringFlag{
				Name:  touchKey,
				Usage: "Comma separated keys to change, prints the order blocks run in",
			},
			verboseFlag(),
		},
		Action: graph,
	}
}

func graph(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool(verboseKey))

	path := cmd.Args().First()
	if path == "" {
		return errNoGraphFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	gf, err := parseGraph(raw)
	if err != nil {
		return fmt.Errorf("graph %s: %w", path, err)
	}
	if gf.Title == "" {
		gf.Title = path
	}

	sim := newSimulation(gf, router.WithLogger(logger))
	logger.Debug("graph loaded", "file", path, "blocks", len(gf.Blocks))

	switch format := cmd.String(formatKey); format {
	case "table":
		writeTable(os.Stdout, sim.r.Blocks())
	case "dot":
		templates.WriteGraphDot(os.Stdout, gf.Title, sim.r.Blocks())
	default:
		return fmt.Errorf("graph: unknown format %q", format)
	}

	if touch := cmd.String(touchKey); touch != "" {
		order, err := sim.touch(strings.Split(touch, ","))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "run order: %s\n", strings.Join(order, " -> "))
	}
	return nil
}

func parseGraph(raw []byte) (*graphFile, error) {
	gf := &graphFile{}
	if err := yaml.Unmarshal(raw, gf); err != nil {
		return nil, err
	}
	for i, b := range gf.Blocks {
		if len(b.In) == 0 {
			return nil, fmt.Errorf("block %d (%s) has no inputs", i, b.Name)
		}
	}
	return gf, nil
}

// simulation runs a block file against a store without real computations:
// every block bumps each of its outputs.
type simulation struct {
	s   *store.Store
	r   *router.Router
	ran []string
}

func newSimulation(gf *graphFile, opts ...router.Option) *simulation {
	sim := &simulation{s: store.New()}
	blocks := make([]*router.Block, len(gf.Blocks))
	for i, def := range gf.Blocks {
		name := def.Name
		if name == "" {
			name = "#" + strconv.Itoa(i)
		}
		out := def.Out
		blocks[i] = &router.Block{
			Name: def.Name,
			In:   def.In,
			Out:  def.Out,
			Exec: func(p *router.Pending) error {
				sim.ran = append(sim.ran, name)
				_, err := sim.r.SetState(sim.bump(out), p)
				return err
			},
		}
	}
	sim.r = router.New(sim.s, blocks, nil, opts...)
	return sim
}

func (sim *simulation) bump(keys []string) map[string]any {
	state := sim.s.GetState()
	update := make(map[string]any, len(keys))
	for _, k := range keys {
		v, _ := state[k].(int)
		update[k] = v + 1
	}
	return update
}

// touch changes keys and reports the blocks that ran, in order.
func (sim *simulation) touch(keys []string) ([]string, error) {
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}
	sim.ran = nil
	if _, err := sim.r.SetState(sim.bump(keys), nil); err != nil {
		return nil, err
	}
	return sim.ran, nil
}

func writeTable(w io.Writer, blocks []router.BlockInfo) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"#", "name", "in", "out", "depth"})
	tbl.SetAutoWrapText(false)
	for _, b := range blocks {
		tbl.Append([]string{
			strconv.Itoa(b.Index),
			b.Name,
			strings.Join(b.In, ", "),
			strings.Join(b.Out, ", "),
			strconv.Itoa(b.Depth),
		})
	}
	tbl.Render()
}
