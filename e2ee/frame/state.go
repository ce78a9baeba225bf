package frame

// State describes a transformer's most recent outcome. Transitions are
// reported through the OnStateChange callback.
type State uint8

const (
	StateOK State = iota
	StateMissingKey
	StateKeyRatcheted
	StateEncryptionFailed
	StateDecryptionFailed
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateMissingKey:
		return "MISSING_KEY"
	case StateKeyRatcheted:
		return "KEY_RATCHETED"
	case StateEncryptionFailed:
		return "ENCRYPTION_FAILED"
	case StateDecryptionFailed:
		return "DECRYPTION_FAILED"
	default:
		return "UNKNOWN"
	}
}
