package server

import "sync"

// nullSink accepts and discards every write.
type nullSink struct{}

func (nullSink) WriteEvent(string, []byte) error { return nil }
func (nullSink) Close() error                    { return nil }

// recordingSink records event names and bodies for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name string
	data []byte
}

func (s *recordingSink) WriteEvent(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{name: name, data: data})
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.name
	}
	return out
}
