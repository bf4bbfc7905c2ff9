package graphio

import "github.com/hupe1980/celltrack/graph"

// FileIDs relates the file indices of one raw file to graph Refs.
type FileIDs struct {
	vertices   []graph.Ref
	edges      []graph.Ref
	vertexFile map[int32]int
	edgeFile   map[int32]int
}

func newFileIDs(numVertices, numEdges int) *FileIDs {
	return &FileIDs{
		vertices:   make([]graph.Ref, 0, numVertices),
		edges:      make([]graph.Ref, 0, numEdges),
		vertexFile: make(map[int32]int, numVertices),
		edgeFile:   make(map[int32]int, numEdges),
	}
}

func (f *FileIDs) addVertex(ref graph.Ref) {
	f.vertexFile[ref.Index] = len(f.vertices)
	f.vertices = append(f.vertices, ref)
}

func (f *FileIDs) addEdge(ref graph.Ref) {
	f.edgeFile[ref.Index] = len(f.edges)
	f.edges = append(f.edges, ref)
}

// NumVertices returns the number of vertices in the file.
func (f *FileIDs) NumVertices() int { return len(f.vertices) }

// NumEdges returns the number of edges in the file.
func (f *FileIDs) NumEdges() int { return len(f.edges) }

// VertexRef returns the vertex at file index i.
func (f *FileIDs) VertexRef(i int) (graph.Ref, bool) {
	if i < 0 || i >= len(f.vertices) {
		return graph.NilRef, false
	}
	return f.vertices[i], true
}

// EdgeRef returns the edge at file index i.
func (f *FileIDs) EdgeRef(i int) (graph.Ref, bool) {
	if i < 0 || i >= len(f.edges) {
		return graph.NilRef, false
	}
	return f.edges[i], true
}

// VertexFileIndex returns the file index of ref.
func (f *FileIDs) VertexFileIndex(ref graph.Ref) (int, bool) {
	i, ok := f.vertexFile[ref.Index]
	if !ok || f.vertices[i] != ref {
		return -1, false
	}
	return i, true
}

// EdgeFileIndex returns the file index of ref.
func (f *FileIDs) EdgeFileIndex(ref graph.Ref) (int, bool) {
	i, ok := f.edgeFile[ref.Index]
	if !ok || f.edges[i] != ref {
		return -1, false
	}
	return i, true
}
