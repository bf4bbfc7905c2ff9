package graph

// RefPool creates, binds and releases flyweight handles of type O.
//
// Handles returned by CreateRef must be returned through ReleaseRef exactly
// once. Releasing a handle returns the handle object only; the entity it
// pointed to is unaffected.
type RefPool[O any] interface {
	CreateRef() O
	ReleaseRef(obj O)
	// ByIndex binds obj (or a new handle if obj is the zero value) to the
	// live entity in slot index.
	ByIndex(index int32, obj O) (O, error)
	Index(obj O) int32
}
