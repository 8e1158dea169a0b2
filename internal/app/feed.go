package app

import (
	"sync"

	"quiz-share-service/internal/domain"
)

// Feed fans out live report snapshots of one quiz to its subscribers.
type Feed struct {
	quizID string

	mu sync.RWMutex
	// subscribers maps each channel to whether it has received a report yet.
	subscribers map[chan domain.QuizReport]bool
}

// NewFeed is exported for infrastructure layers that keep feeds.
func NewFeed(quizID string) *Feed {
	return &Feed{
		quizID:      quizID,
		subscribers: make(map[chan domain.QuizReport]bool),
	}
}

// IsEmpty reports whether the feed has no subscribers.
func (f *Feed) IsEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) == 0
}

// subscribe registers a channel that receives every later broadcast. The
// caller primes it with a snapshot built after registration.
func (f *Feed) subscribe() (chan domain.QuizReport, func()) {
	ch := make(chan domain.QuizReport, 8)

	f.mu.Lock()
	f.subscribers[ch] = false
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// prime delivers the initial snapshot unless a broadcast already reached ch.
// A broadcast is built after its submission was stored, so it is never older
// than a snapshot taken before it.
func (f *Feed) prime(ch chan domain.QuizReport, report domain.QuizReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delivered, ok := f.subscribers[ch]
	if !ok || delivered {
		return
	}
	f.subscribers[ch] = true
	ch <- report
}

func (f *Feed) broadcast(report domain.QuizReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		f.subscribers[ch] = true
		select {
		case ch <- report:
		default:
			// slow subscriber: replace its oldest snapshot with the newest
			select {
			case <-ch:
			default:
			}
			ch <- report
		}
	}
}
