package core

// Conflict enumerates why a binding attempt must be blocked
type Conflict int

const (
	// ConflictNone allows the binding
	ConflictNone Conflict = iota

	// ConflictWalletBound blocks a passkey attempt: a wallet already claimed
	// the account and no passkey is registered, so a passkey cannot be added
	// as a silent alternate factor
	ConflictWalletBound

	// ConflictPasskeyBound blocks a wallet attempt: a passkey already claimed
	// the account, so the caller must authenticate via passkey first
	ConflictPasskeyBound

	// ConflictAddressMismatch blocks a wallet attempt for an account bound to
	// a different canonical address
	ConflictAddressMismatch
)

// BindingDecision summarizes the gate's view of a single binding attempt.
// It is computed per request and never persisted.
type BindingDecision struct {
	HasIdentity   bool
	WalletAddress string
	HasPasskey    bool
	Conflict      Conflict
}

// Blocked reports whether the attempt must be rejected
func (d BindingDecision) Blocked() bool {
	return d.Conflict != ConflictNone
}

// Err maps the decision to its sentinel error, or nil when allowed
func (d BindingDecision) Err() error {
	switch d.Conflict {
	case ConflictWalletBound:
		return ErrWalletBound
	case ConflictPasskeyBound:
		return ErrPasskeyBound
	case ConflictAddressMismatch:
		return ErrWalletMismatch
	default:
		return nil
	}
}

// DecideBinding applies the first-strong-factor-wins policy against the
// subject's existing identity, if any. For wallet attempts both the claimed
// address and the stored one must already be canonical; comparisons here are
// plain equality.
func DecideBinding(identity *Identity, method BindingMethod, address string) BindingDecision {
	if identity == nil {
		return BindingDecision{}
	}

	decision := BindingDecision{
		HasIdentity:   true,
		WalletAddress: identity.Prefs.WalletAddress,
		HasPasskey:    identity.HasPasskey(),
	}

	switch method {
	case MethodPasskey:
		if identity.HasWallet() && !decision.HasPasskey {
			decision.Conflict = ConflictWalletBound
		}
	case MethodWallet:
		if decision.HasPasskey && !identity.HasWallet() {
			decision.Conflict = ConflictPasskeyBound
		} else if identity.HasWallet() && decision.WalletAddress != address {
			decision.Conflict = ConflictAddressMismatch
		}
	}

	return decision
}
