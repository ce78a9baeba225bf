package keys

import "errors"

var (
	ErrInvalidKey          = errors.New("keys: empty or malformed key material")
	ErrKeyNotFound         = errors.New("keys: no key installed for key index")
	ErrParticipantNotFound = errors.New("keys: unknown participant")
	ErrKeyExpired          = errors.New("keys: generation no longer held in the key ring")
	ErrRatchetExhausted    = errors.New("keys: maximum generation reached")
	ErrNotSharedMode       = errors.New("keys: provider is not in shared-key mode")
)
