// Package pubsub is a small in-memory event bus used to broadcast
// editing-session changes to interested listeners.
package pubsub

import (
	"context"
	"sync"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

type PublishSubscriber interface {
	Publisher
	Subscriber
}

type Event struct {
	Topic   string
	Message []byte
}

func NewInmemPubsub() *Inmem {
	publish := make(chan Event)
	subscriptions := make(map[string][]subscription)
	inmem := &Inmem{
		publish:       publish,
		subscriptions: subscriptions,
		done:          make(chan struct{}),
	}
	go inmem.dispatch()
	return inmem
}

type Inmem struct {
	mtx           sync.RWMutex
	subscriptions map[string][]subscription

	publish chan Event
	done    chan struct{}
	once    sync.Once
}

type subscription struct {
	name      string
	topic     string
	ctx       context.Context
	eventChan chan<- Event
}

// Publish queues msg for every subscriber of topic. Delivery is
// asynchronous; Publish never blocks on a slow subscriber.
func (p *Inmem) Publish(ctx context.Context, topic string, msg []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	event := Event{Topic: topic, Message: msg}
	go func() {
		select {
		case p.publish <- event:
		case <-p.done:
		}
	}()
	return nil
}

// Close stops dispatching. Pending events may be dropped.
func (p *Inmem) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
