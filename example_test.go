package celltrack_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/celltrack"
	"github.com/hupe1980/celltrack/blobstore"
	"github.com/hupe1980/celltrack/spatial"
)

func Example() {
	m, err := celltrack.New(celltrack.WithDimensions(3))
	if err != nil {
		panic(err)
	}
	defer m.Close()

	mother, _ := m.AddVertex(0, []float64{0, 0, 0})
	d1, _ := m.AddVertex(1, []float64{-1, 0, 0})
	d2, _ := m.AddVertex(1, []float64{1, 0, 0})
	_, _ = m.AddEdge(mother, d1)
	_, _ = m.AddEdge(mother, d2)

	res, _ := m.NearestNeighbor(1, []float64{0.8, 0, 0})
	fmt.Println(res.Ref == d2)

	track, _ := m.Track(d1)
	fmt.Println(len(track))
	// Output:
	// true
	// 3
}

func ExampleModel_Clip() {
	m, _ := celltrack.New()
	defer m.Close()

	_, _ = m.AddVertex(0, []float64{0, 0, 0})
	_, _ = m.AddVertex(0, []float64{10, 0, 0})

	// x < 5
	clip, _ := m.Clip(0, spatial.HyperPlane{Normal: []float64{-1, 0, 0}, Distance: -5})
	fmt.Println(len(clip.InsideRefs()), len(clip.OutsideRefs()))
	// Output: 1 1
}

func ExampleLoad() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	m, _ := celltrack.New()
	a, _ := m.AddVertex(0, []float64{1, 2, 3})
	b, _ := m.AddVertex(1, []float64{1, 2, 4})
	_, _ = m.AddEdge(a, b)
	if err := m.Save(ctx, store, "embryo.ctrk"); err != nil {
		panic(err)
	}
	_ = m.Close()

	loaded, err := celltrack.Load(ctx, store, "embryo.ctrk")
	if err != nil {
		panic(err)
	}
	defer loaded.Close()
	fmt.Println(loaded.NumVertices(), loaded.NumEdges())
	// Output: 2 1
}
