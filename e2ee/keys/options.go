package keys

const (
	// DefaultKeyRingSize is the number of key generations retained per slot.
	DefaultKeyRingSize = 16

	// MaxKeyRingSize bounds the per-slot history.
	MaxKeyRingSize = 255

	// DefaultRatchetWindowSize disables automatic ratchet recovery on decrypt.
	DefaultRatchetWindowSize = 0

	// DefaultFailureTolerance disables consecutive-failure tracking.
	DefaultFailureTolerance = -1
)

// Options is the construction-time policy of a Provider. It is immutable once
// the provider is created.
type Options struct {
	// SharedKey makes every participant id alias a single key handler.
	SharedKey bool

	// RatchetSalt is mixed into every derivation. Required for ratcheting.
	RatchetSalt []byte

	// RatchetWindowSize is how many generations a decrypt may ratchet forward
	// when the current key fails authentication. Zero disables auto-recovery.
	RatchetWindowSize int

	// KeyRingSize is the number of generations kept per key index,
	// clamped to [1, MaxKeyRingSize]. Zero selects DefaultKeyRingSize.
	KeyRingSize int

	// FailureTolerance is the number of consecutive decryption failures
	// allowed per key index before the handler reports the key as unusable.
	// Negative values disable the check.
	FailureTolerance int
}

// DefaultOptions returns the default policy with the given ratchet salt.
func DefaultOptions(ratchetSalt []byte) Options {
	return Options{
		RatchetSalt:       ratchetSalt,
		RatchetWindowSize: DefaultRatchetWindowSize,
		KeyRingSize:       DefaultKeyRingSize,
		FailureTolerance:  DefaultFailureTolerance,
	}
}

func (o Options) withDefaults() Options {
	if o.KeyRingSize <= 0 {
		o.KeyRingSize = DefaultKeyRingSize
	}
	if o.KeyRingSize > MaxKeyRingSize {
		o.KeyRingSize = MaxKeyRingSize
	}
	if o.RatchetWindowSize < 0 {
		o.RatchetWindowSize = 0
	}
	o.RatchetSalt = append([]byte(nil), o.RatchetSalt...)
	return o
}
