package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/celltrack"
	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/testutil"
)

type generateFlags struct {
	tracks     int
	frames     int
	seed       int64
	scale      float64
	jitter     float64
	divideProb float64
	maxCells   int
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate a random lineage and save it",
		Long: `Generate seeds cells at timepoint 0 and follows each one through
the requested number of frames. Cells drift by a gaussian step per frame and
divide with the given probability.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.env(cmd)
			if err != nil {
				return err
			}
			m, err := celltrack.New(e.cfg.ModelOptions(e.logger)...)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := generateLineage(m, f); err != nil {
				return err
			}
			if err := m.Save(cmd.Context(), e.store, args[0]); err != nil {
				return fmt.Errorf("failed to save %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s: %d vertices, %d edges\n", args[0], m.NumVertices(), m.NumEdges())
			return nil
		},
	}
	cmd.Flags().IntVar(&f.tracks, "tracks", 10, "number of cells at timepoint 0")
	cmd.Flags().IntVar(&f.frames, "frames", 20, "number of timepoints")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&f.scale, "scale", 100, "extent of the initial positions")
	cmd.Flags().Float64Var(&f.jitter, "jitter", 1, "standard deviation of the per-frame step")
	cmd.Flags().Float64Var(&f.divideProb, "divide", 0.02, "per-frame division probability")
	cmd.Flags().IntVar(&f.maxCells, "max-cells", 10000, "stop dividing once a frame holds this many cells")
	return cmd
}

func generateLineage(m *celltrack.Model, f *generateFlags) error {
	if f.tracks < 0 || f.frames < 1 {
		return fmt.Errorf("need tracks >= 0 and frames >= 1")
	}
	rng := testutil.NewRNG(f.seed)
	dims := m.Dimensions()

	return m.Update(func(gr *graph.Graph) error {
		type cell struct {
			v   *graph.Vertex
			pos []float64
		}
		var live []cell
		for range f.tracks {
			pos := rng.Position(dims, f.scale)
			v, err := gr.AddVertex(0, pos)
			if err != nil {
				return err
			}
			live = append(live, cell{v: v, pos: pos})
		}

		for t := 1; t < f.frames; t++ {
			next := make([]cell, 0, len(live))
			for _, c := range live {
				children := 1
				if len(live) < f.maxCells && rng.Float64() < f.divideProb {
					children = 2
				}
				for range children {
					pos := rng.Jitter(c.pos, f.jitter)
					v, err := gr.AddVertex(t, pos)
					if err != nil {
						return err
					}
					if _, err := gr.AddEdge(c.v, v); err != nil {
						return err
					}
					next = append(next, cell{v: v, pos: pos})
				}
			}
			live = next
		}
		return nil
	})
}
