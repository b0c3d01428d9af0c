package chat

import (
	"iter"
)

// Stream is a started completion. Tokens must be consumed by a single
// goroutine; Close releases the upstream request and is safe to call more
// than once.
type Stream struct {
	next func() (string, error, bool)
	stop func()

	first    string
	hasFirst bool
}

func newStream(seq iter.Seq2[string, error]) *Stream {
	next, stop := iter.Pull2(seq)
	return &Stream{next: next, stop: stop}
}

// prime pulls the first token. A stream that ends without output primes
// successfully and yields nothing.
func (s *Stream) prime() error {
	tok, err, ok := s.next()
	if !ok {
		return nil
	}
	if err != nil {
		return err
	}
	s.first, s.hasFirst = tok, true
	return nil
}

// Tokens yields the model's output in arrival order. An error ends the
// sequence.
func (s *Stream) Tokens() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()

		if s.hasFirst {
			s.hasFirst = false
			if !yield(s.first, nil) {
				return
			}
		}
		for {
			tok, err, ok := s.next()
			if !ok {
				return
			}
			if !yield(tok, err) || err != nil {
				return
			}
		}
	}
}

// Close stops the stream.
func (s *Stream) Close() {
	s.stop()
}
