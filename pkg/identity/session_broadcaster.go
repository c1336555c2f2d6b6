package identity

import (
	"context"
	"sync"

	"github.com/examaid-app/examaid-engine/pkg/models"
)

// sessionBroadcaster fans session changes out to observers. Each observer
// gets the latest change; intermediate states a slow observer missed are
// conflated away.
type sessionBroadcaster struct {
	mu      sync.Mutex
	subs    map[uint64]chan *models.User
	nextSub uint64
}

func newSessionBroadcaster() *sessionBroadcaster {
	return &sessionBroadcaster{subs: make(map[uint64]chan *models.User)}
}

func (b *sessionBroadcaster) subscribe(ctx context.Context) <-chan *models.User {
	ch := make(chan *models.User, 1)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (b *sessionBroadcaster) publish(user *models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- user:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- user:
			default:
			}
		}
	}
}
