package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sets []*ChangeSet
}

func (r *recorder) GraphChanged(cs *ChangeSet) { r.sets = append(r.sets, cs) }

func (r *recorder) kinds() []ChangeKind {
	var out []ChangeKind
	for _, cs := range r.sets {
		for c := range cs.All() {
			out = append(out, c.Kind)
		}
	}
	return out
}

func TestListener_ImmediateDelivery(t *testing.T) {
	g := newTestGraph(t)
	rec := &recorder{}
	remove := g.AddListener(rec)

	a, _ := g.AddVertex(0, []float64{1, 2, 3})
	b, _ := g.AddVertex(0, []float64{0, 0, 0})
	e, _ := g.AddEdge(a, b)
	require.NoError(t, a.SetPosition([]float64{3, 2, 1}))
	require.NoError(t, g.RemoveEdge(e))

	assert.Equal(t, []ChangeKind{VertexAdded, VertexAdded, EdgeAdded, VertexMoved, EdgeRemoved}, rec.kinds())
	require.Len(t, rec.sets, 5)

	added := rec.sets[0].At(0)
	assert.Equal(t, a.Ref(), added.Ref)
	assert.Equal(t, []float64{1, 2, 3}, added.Position)

	moved := rec.sets[3].At(0)
	assert.Equal(t, []float64{3, 2, 1}, moved.Position)

	edge := rec.sets[2].At(0)
	assert.Equal(t, a.Ref(), edge.Source)
	assert.Equal(t, b.Ref(), edge.Target)
	assert.False(t, edge.Kind.IsVertex())

	remove()
	_, _ = g.AddVertex(0, []float64{0, 0, 0})
	assert.Len(t, rec.sets, 5)
}

func TestTx_BatchesChanges(t *testing.T) {
	g := newTestGraph(t)
	rec := &recorder{}
	g.AddListener(rec)

	tx, err := g.Begin()
	require.NoError(t, err)

	_, err = g.Begin()
	assert.ErrorIs(t, err, ErrTxInProgress)

	a, _ := g.AddVertex(0, []float64{0, 0, 0})
	b, _ := g.AddVertex(1, []float64{0, 0, 0})
	_, _ = g.AddEdge(a, b)
	require.NoError(t, g.Remove(a))
	assert.Empty(t, rec.sets)
	assert.Equal(t, 5, tx.Len())

	cs, err := tx.Commit()
	require.NoError(t, err)
	require.Len(t, rec.sets, 1)
	assert.Same(t, cs, rec.sets[0])
	assert.Equal(t, []ChangeKind{VertexAdded, VertexAdded, EdgeAdded, EdgeRemoved, VertexRemoved}, rec.kinds())
	assert.Equal(t, 2, cs.Count(VertexAdded))

	_, err = tx.Commit()
	assert.ErrorIs(t, err, ErrTxDone)

	// A new transaction may start after commit.
	tx2, err := g.Begin()
	require.NoError(t, err)
	empty, err := tx2.Commit()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Len(t, rec.sets, 1, "empty commits are not delivered")
}

func TestChangeSet_Helpers(t *testing.T) {
	var nilSet *ChangeSet
	assert.Equal(t, 0, nilSet.Len())
	assert.Nil(t, nilSet.Changes())

	cs := NewChangeSet(Change{Kind: VertexAdded}, Change{Kind: EdgeAdded})
	assert.Equal(t, 2, cs.Len())
	assert.Equal(t, 1, cs.Count(EdgeAdded))
	assert.Equal(t, "edge-added", cs.At(1).Kind.String())
	assert.Equal(t, "unknown", ChangeKind(0).String())

	cp := cs.Changes()
	cp[0].Kind = EdgeRemoved
	assert.Equal(t, VertexAdded, cs.At(0).Kind)
}
