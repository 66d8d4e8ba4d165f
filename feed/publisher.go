package feed

import (
	"sync"

	"hft-sim-go/sim"
)

// Subscription 单个订阅者的接收端。慢消费者会丢消息而不是阻塞广播。
type Subscription[T any] struct {
	ch chan T
}

// C 返回接收通道，Unsubscribe 后关闭。
func (s *Subscription[T]) C() <-chan T { return s.ch }

type hub[T any] struct {
	mu   sync.RWMutex
	subs map[*Subscription[T]]struct{}
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

func (h *hub[T]) subscribe(buffer int) *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub[T]) unsubscribe(sub *Subscription[T]) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.ch)
}

func (h *hub[T]) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *hub[T]) broadcast(value T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- value:
		default:
		}
	}
}

// Publisher 引擎事件分发器，实现 sim.Sink。
type Publisher struct {
	statusHub *hub[sim.Status]
	tradeHub  *hub[sim.TradeEvent]
}

// NewPublisher 创建分发器。
func NewPublisher() *Publisher {
	return &Publisher{
		statusHub: newHub[sim.Status](),
		tradeHub:  newHub[sim.TradeEvent](),
	}
}

// OnStatus 广播状态快照。
func (p *Publisher) OnStatus(st sim.Status) { p.statusHub.broadcast(st) }

// OnTrade 广播成交事件。
func (p *Publisher) OnTrade(tr sim.TradeEvent) { p.tradeHub.broadcast(tr) }

// SubscribeStatus 订阅状态流。
func (p *Publisher) SubscribeStatus(buffer int) *Subscription[sim.Status] {
	return p.statusHub.subscribe(buffer)
}

// UnsubscribeStatus 退订并关闭通道，重复退订为空操作。
func (p *Publisher) UnsubscribeStatus(sub *Subscription[sim.Status]) {
	p.statusHub.unsubscribe(sub)
}

// SubscribeTrades 订阅成交流。
func (p *Publisher) SubscribeTrades(buffer int) *Subscription[sim.TradeEvent] {
	return p.tradeHub.subscribe(buffer)
}

// UnsubscribeTrades 退订并关闭通道，重复退订为空操作。
func (p *Publisher) UnsubscribeTrades(sub *Subscription[sim.TradeEvent]) {
	p.tradeHub.unsubscribe(sub)
}

// StatusSubscribers 当前状态流订阅者数。
func (p *Publisher) StatusSubscribers() int { return p.statusHub.count() }

// TradeSubscribers 当前成交流订阅者数。
func (p *Publisher) TradeSubscribers() int { return p.tradeHub.count() }
