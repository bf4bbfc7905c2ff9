package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/spatial"
)

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Print model dimensions, sizes and per-timepoint counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.env(cmd)
			if err != nil {
				return err
			}
			m, err := e.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dimensions: %d\n", m.Dimensions())
			fmt.Fprintf(out, "vertices:   %d\n", m.NumVertices())
			fmt.Fprintf(out, "edges:      %d\n", m.NumEdges())

			order, err := m.TopologicalSort()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "acyclic:    %t\n", !order.Failed())

			tps := m.Index().Timepoints()
			fmt.Fprintf(out, "timepoints: %d\n", len(tps))
			for _, t := range tps {
				if x, ok := m.Index().Lookup(t); ok {
					fmt.Fprintf(out, "  t=%d: %d\n", t, x.Size())
				}
			}
			return nil
		},
	}
}

func newNearestCmd(g *globalFlags) *cobra.Command {
	var (
		t   int
		pos string
	)
	cmd := &cobra.Command{
		Use:   "nearest <name>",
		Short: "Find the vertex closest to a position at one timepoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseFloats(pos)
			if err != nil {
				return err
			}
			e, err := g.env(cmd)
			if err != nil {
				return err
			}
			m, err := e.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.NearestNeighbor(t, q)
			if err != nil {
				return err
			}
			if !res.Found {
				fmt.Fprintf(cmd.OutOrStdout(), "no vertex at t=%d\n", t)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s pos=%s dist=%g\n", res.Ref, formatFloats(res.Position), res.Distance())
			return nil
		},
	}
	cmd.Flags().IntVarP(&t, "timepoint", "t", 0, "timepoint to search")
	cmd.Flags().StringVarP(&pos, "pos", "p", "", "query position, comma separated")
	_ = cmd.MarkFlagRequired("pos")
	return cmd
}

func newClipCmd(g *globalFlags) *cobra.Command {
	var (
		t      int
		planes []string
		lo, hi string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "clip <name>",
		Short: "Count the vertices inside a convex polytope at one timepoint",
		Long: `Clip splits the vertices of one timepoint by a convex polytope.
Give half-spaces with --plane n1,...,nd,dist (inside means dot(n, x) >= dist)
or an axis-aligned box with --min and --max.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hps, err := buildPlanes(planes, lo, hi)
			if err != nil {
				return err
			}
			e, err := g.env(cmd)
			if err != nil {
				return err
			}
			m, err := e.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			c, err := m.Clip(t, hps...)
			if err != nil {
				return err
			}
			inside, outside := c.InsideRefs(), c.OutsideRefs()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "inside: %d outside: %d\n", len(inside), len(outside))
			if list {
				slices.SortFunc(inside, func(a, b graph.Ref) int { return int(a.Index) - int(b.Index) })
				for _, ref := range inside {
					v, err := m.Vertex(ref)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  %s pos=%s\n", ref, formatFloats(v.Position))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&t, "timepoint", "t", 0, "timepoint to clip")
	cmd.Flags().StringArrayVar(&planes, "plane", nil, "half-space n1,...,nd,dist (repeatable)")
	cmd.Flags().StringVar(&lo, "min", "", "box lower corner, comma separated")
	cmd.Flags().StringVar(&hi, "max", "", "box upper corner, comma separated")
	cmd.Flags().BoolVar(&list, "list", false, "print the inside vertices")
	cmd.MarkFlagsRequiredTogether("min", "max")
	return cmd
}

// buildPlanes parses --plane values and appends the faces of the optional
// box.
func buildPlanes(planes []string, lo, hi string) ([]spatial.HyperPlane, error) {
	var out []spatial.HyperPlane
	for _, p := range planes {
		v, err := parseFloats(p)
		if err != nil {
			return nil, err
		}
		if len(v) < 2 {
			return nil, fmt.Errorf("plane %q needs a normal and a distance", p)
		}
		out = append(out, spatial.HyperPlane{Normal: v[:len(v)-1], Distance: v[len(v)-1]})
	}
	if lo != "" || hi != "" {
		l, err := parseFloats(lo)
		if err != nil {
			return nil, err
		}
		h, err := parseFloats(hi)
		if err != nil {
			return nil, err
		}
		if len(l) != len(h) {
			return nil, fmt.Errorf("box corners differ in dimensionality")
		}
		for d := range l {
			n := make([]float64, len(l))
			n[d] = 1
			out = append(out, spatial.HyperPlane{Normal: n, Distance: l[d]})
			n = make([]float64, len(l))
			n[d] = -1
			out = append(out, spatial.HyperPlane{Normal: n, Distance: -h[d]})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("need at least one --plane or a --min/--max box")
	}
	return out, nil
}

func newTrackCmd(g *globalFlags) *cobra.Command {
	var (
		t   int
		pos string
	)
	cmd := &cobra.Command{
		Use:   "track <name>",
		Short: "Print the track through the vertex closest to a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseFloats(pos)
			if err != nil {
				return err
			}
			e, err := g.env(cmd)
			if err != nil {
				return err
			}
			m, err := e.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.NearestNeighbor(t, q)
			if err != nil {
				return err
			}
			if !res.Found {
				return fmt.Errorf("no vertex at t=%d", t)
			}
			m.RLock()
			err = m.Selection().SelectTrack(res.Ref)
			m.RUnlock()
			if err != nil {
				return err
			}

			infos := make([]vertexLine, 0, m.Selection().NumVertices())
			for _, ref := range m.Selection().Vertices() {
				v, err := m.Vertex(ref)
				if err != nil {
					return err
				}
				infos = append(infos, vertexLine{t: v.Timepoint, ref: ref.String(), pos: v.Position})
			}
			slices.SortStableFunc(infos, func(a, b vertexLine) int { return a.t - b.t })

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "track of %s: %d vertices, %d edges\n", res.Ref, len(infos), m.Selection().NumEdges())
			for _, l := range infos {
				fmt.Fprintf(out, "  t=%d %s pos=%s\n", l.t, l.ref, formatFloats(l.pos))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&t, "timepoint", "t", 0, "timepoint of the query position")
	cmd.Flags().StringVarP(&pos, "pos", "p", "", "query position, comma separated")
	_ = cmd.MarkFlagRequired("pos")
	return cmd
}

type vertexLine struct {
	t   int
	ref string
	pos []float64
}
