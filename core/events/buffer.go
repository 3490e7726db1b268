package events

// Buffer holds events raised while a transaction executes. The ledger flushes
// the buffer to the real emitter only after the transaction commits, so a
// rejected transaction never publishes anything.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int { return len(b.pending) }

// Flush forwards every buffered event to the emitter and empties the buffer.
func (b *Buffer) Flush(to Emitter) {
	if to != nil {
		for _, evt := range b.pending {
			to.Emit(evt)
		}
	}
	b.pending = nil
}

// Reset discards all buffered events.
func (b *Buffer) Reset() { b.pending = nil }
