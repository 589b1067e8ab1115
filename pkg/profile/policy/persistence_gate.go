package policy

// PersistenceGate decides whether a finished (or intermediate) profile is handed to storage.
// The policy is consulted on every call; nothing is cached.
type PersistenceGate struct {
	policy ConfigPolicy
}

func NewPersistenceGate(policy ConfigPolicy) PersistenceGate {
	return PersistenceGate{policy: policy}
}

func (g PersistenceGate) Allow() bool {
	return g.policy.CaptureEnabled() && g.policy.PersistEnabled()
}
