package til

// Pipe is a named join point in a Stream's pipe graph, identified by the
// combination of its parent module's path and the tap name. Every module
// context taking the same (parent path, tap name) pair ends up sharing one
// Pipe; exactly one of the joined taps is Driving at any moment, and the
// rest read through it.
type Pipe struct {
	Owner      any    // the module context that created this pipe (ie. the first tap to join it)
	OwnerFoo   any     // caller-supplied opaque attachment, eg. a Rocket track handle
	ParentPath string // path of Owner's parent module, forming the pipe's namespace
	Name       string

	// Hash is hash(name) XOR hash(parent_path), carried for wire/debug
	// parity with the original's combined pipe hash attribute. It is not
	// used as the lookup key internally (see Stream.pipes), since Go's map
	// equality on a (parent_path, name) struct key is both simpler and
	// collision-free.
	Hash uint32

	Driving *Tap
}

type pipeKey struct {
	ParentPath string
	Name       string
}
