package keys

import "sync"

// Provider is the registry of per-participant key handlers and the holder of
// the global ratcheting policy. In shared-key mode every participant id
// aliases one implicit handler.
//
// Operations on different participants do not serialize against each other;
// the provider lock only guards the registry itself.
type Provider struct {
	opts Options

	mu       sync.RWMutex
	handlers map[string]*ParticipantKeyHandler
	shared   *ParticipantKeyHandler
}

// NewProvider creates a provider with the given policy. The policy is
// normalized (ring size clamp, salt copy) and immutable afterwards.
func NewProvider(opts Options) *Provider {
	opts = opts.withDefaults()
	p := &Provider{
		opts:     opts,
		handlers: make(map[string]*ParticipantKeyHandler),
	}
	if opts.SharedKey {
		p.shared = newParticipantKeyHandler(opts)
	}
	return p
}

// Options returns the provider's normalized policy.
func (p *Provider) Options() Options { return p.opts }

// SetKey installs material as generation 0 for (participantID, keyIndex).
// The participant's handler is created on first use.
func (p *Provider) SetKey(participantID string, keyIndex uint8, material []byte) error {
	return p.handlerForWrite(participantID).SetKey(keyIndex, material)
}

// GetKey returns the participant's key handler. In shared-key mode the id is
// ignored and the single shared handler is returned.
func (p *Provider) GetKey(participantID string) (*ParticipantKeyHandler, bool) {
	if p.opts.SharedKey {
		return p.shared, true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[participantID]
	return h, ok
}

// RatchetKey advances (participantID, keyIndex) one generation and returns the
// new encryption key.
func (p *Provider) RatchetKey(participantID string, keyIndex uint8) ([]byte, error) {
	h, ok := p.GetKey(participantID)
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return h.RatchetKey(keyIndex)
}

// GetKeySet returns the key set of an exact generation, or ErrKeyExpired once
// the ring has evicted it.
func (p *Provider) GetKeySet(participantID string, keyIndex uint8, generation uint32) (*KeySet, error) {
	h, ok := p.GetKey(participantID)
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return h.KeySetAt(keyIndex, generation)
}

// RemoveParticipant drops a participant's handler and all its key material.
// No-op in shared-key mode.
func (p *Provider) RemoveParticipant(participantID string) {
	if p.opts.SharedKey {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handlers, participantID)
}

// SetSharedKey installs material on the shared handler.
func (p *Provider) SetSharedKey(keyIndex uint8, material []byte) error {
	if !p.opts.SharedKey {
		return ErrNotSharedMode
	}
	return p.shared.SetKey(keyIndex, material)
}

// RatchetSharedKey advances the shared key one generation.
func (p *Provider) RatchetSharedKey(keyIndex uint8) ([]byte, error) {
	if !p.opts.SharedKey {
		return nil, ErrNotSharedMode
	}
	return p.shared.RatchetKey(keyIndex)
}

// GetSharedKey returns a copy of the shared handler's current material, for
// handing to a participant joining mid-session.
func (p *Provider) GetSharedKey(keyIndex uint8) ([]byte, error) {
	if !p.opts.SharedKey {
		return nil, ErrNotSharedMode
	}
	ks, err := p.shared.CurrentKeySet(keyIndex)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), ks.Material...), nil
}

func (p *Provider) handlerForWrite(participantID string) *ParticipantKeyHandler {
	if p.opts.SharedKey {
		return p.shared
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handlers[participantID]
	if !ok {
		h = newParticipantKeyHandler(p.opts)
		p.handlers[participantID] = h
	}
	return h
}
