package pubsub

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("pubsub: closed")

type Subscriber interface {
	Subscribe(ctx context.Context, name, topic string) (<-chan Event, error)
}

// Subscribe returns a channel receiving events published to topic. The
// subscription ends when ctx is done.
func (p *Inmem) Subscribe(ctx context.Context, name, topic string) (<-chan Event, error) {
	select {
	case <-p.done:
		return nil, ErrClosed
	default:
	}
	events := make(chan Event)
	sub := subscription{
		name:      name,
		topic:     topic,
		ctx:       ctx,
		eventChan: events,
	}
	p.mtx.Lock()
	p.subscriptions[topic] = append(p.subscriptions[topic], sub)
	p.mtx.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			p.unsubscribe(name, topic)
		case <-p.done:
		}
	}()

	return events, nil
}

func (p *Inmem) unsubscribe(name, topic string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	subs := p.subscriptions[topic]
	for i, s := range subs {
		if s.name == name {
			p.subscriptions[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (p *Inmem) dispatch() {
	for {
		select {
		case ev := <-p.publish:
			p.mtx.RLock()
			for _, sub := range p.subscriptions[ev.Topic] {
				go func(s subscription) {
					select {
					case s.eventChan <- ev:
					case <-s.ctx.Done():
					case <-p.done:
					}
				}(sub)
			}
			p.mtx.RUnlock()
		case <-p.done:
			return
		}
	}
}
