package beancache

// Hooks are lightweight callbacks for high-signal lifecycle events.
// Implementations MUST be cheap and non-blocking; they run on invocation paths.
// Use hooks/async to move expensive reporting off those paths.
type Hooks interface {
	// A bean was registered with the store by an outermost or nested Create.
	BeanCreated(id, group string)

	// A bean was removed through Remove or Discard.
	BeanRemoved(id string)

	// An operation failed inside a batch and the batch was discarded.
	// op ∈ {"create", "get", "release", "remove", "discard", "contains"}
	BatchDiscarded(op string)

	// Closing (committing) a batch failed.
	BatchCloseFailed(op string, err error)

	// Store events, emitted by manager/local.
	Passivated(storageKey string)
	Activated(storageKey string)
	PassivationFailed(storageKey string, err error)

	// Passivated state could not be brought back and the bean was dropped.
	// reason ∈ {"missing", "corrupt", "gen_mismatch", "decode"}
	StateLost(storageKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) BeanCreated(string, string)      {}
func (NopHooks) BeanRemoved(string)              {}
func (NopHooks) BatchDiscarded(string)           {}
func (NopHooks) BatchCloseFailed(string, error)  {}
func (NopHooks) Passivated(string)               {}
func (NopHooks) Activated(string)                {}
func (NopHooks) PassivationFailed(string, error) {}
func (NopHooks) StateLost(string, string)        {}
