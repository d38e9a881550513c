package models

// Call is the per-operation context the engine hands to every component:
// who is calling and the chain height observed once at the start of the call.
type Call struct {
	Caller string
	Height uint64
}
