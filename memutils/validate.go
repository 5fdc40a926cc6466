package memutils

// Validatable is used by the DebugValidate method to allow it to act upon
// all types with a Validate method. Heap structures (blocks, mega-block lists)
// implement it with full consistency walks, which is why DebugValidate only
// runs them in debug builds.
type Validatable interface {
	Validate() error
}
