package engine

import "sync"

// eventBufferSize is the channel buffer for each event subscriber. Events are
// dropped for a subscriber that falls this far behind rather than stalling
// the runner.
const eventBufferSize = 32

// Broker fans out job lifecycle events (progress ticks, state changes) to
// subscribers keyed by job id. Safe for concurrent use.
//
// Finished jobs leave a closed marker behind so a subscriber arriving after
// the terminal write gets an already-closed channel instead of blocking.
type Broker struct {
	mu   sync.Mutex
	jobs map[string]*jobStream
}

type jobStream struct {
	subs   map[int]chan string
	nextID int
	done   bool
}

// NewBroker creates an empty event broker.
func NewBroker() *Broker {
	return &Broker{jobs: make(map[string]*jobStream)}
}

// Subscribe returns a channel of events for the given job id and a cancel
// function. If the job already finished, the channel is closed on return.
func (b *Broker) Subscribe(jobID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	js, ok := b.jobs[jobID]
	if !ok {
		js = &jobStream{subs: make(map[int]chan string)}
		b.jobs[jobID] = js
	}

	ch := make(chan string, eventBufferSize)
	if js.done {
		close(ch)
		return ch, func() {}
	}

	id := js.nextID
	js.nextID++
	js.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(js.subs, id)
	}
}

// Publish delivers an event to every subscriber of the job. Slow subscribers
// with full buffers miss the event.
func (b *Broker) Publish(jobID, event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	js, ok := b.jobs[jobID]
	if !ok || js.done {
		return
	}
	for _, ch := range js.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Finish marks the job's stream complete, closing all subscriber channels.
// Later Subscribe calls for the id observe a closed channel.
func (b *Broker) Finish(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	js, ok := b.jobs[jobID]
	if !ok {
		b.jobs[jobID] = &jobStream{subs: make(map[int]chan string), done: true}
		return
	}

	js.done = true
	for id, ch := range js.subs {
		close(ch)
		delete(js.subs, id)
	}
}
