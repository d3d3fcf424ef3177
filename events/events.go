// Package events publishes match-cycle lifecycle events to listeners. The hub
// serializes all bookkeeping through a single run loop and fans events out to
// in-process subscribers and to websocket connections held by the transport
// layer. Delivery is fire-and-forget: the engine never blocks on a listener.
package events

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

const (
	writeDeadline        = 5 * time.Second
	subscriberBufferSize = 64
	shutdownPollInterval = 200 * time.Millisecond
)

// Event kinds emitted by the engine.
const (
	KindStateChange     = "stateChange"
	KindMatchStart      = "matchStart"
	KindMatchEnd        = "matchEnd"
	KindPlayerRelegated = "playerRelegated"
	KindServerReset     = "serverReset"
)

// Envelope is the wire form of every event: a kind tag plus a JSON-serializable payload.
type Envelope struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// connAndDoneChan pairs a websocket connection with a channel the run loop
// uses to signal the web framework that registration completed.
type connAndDoneChan struct {
	connection *websocket.Conn
	doneChan   chan bool
}

type subAndDoneChan struct {
	ch       chan Envelope
	doneChan chan bool
}

type Hub struct {
	connections map[*websocket.Conn]bool
	subscribers map[chan Envelope]bool

	broadcast      chan Envelope
	flush          chan bool
	register       chan connAndDoneChan
	unregister     chan connAndDoneChan
	subscribe      chan subAndDoneChan
	unsubscribe    chan subAndDoneChan
	getQueueLength chan chan int
	shutdown       chan bool

	eventQueue []Envelope
	isRunning  atomic.Bool
}

func NewHub() *Hub {
	h := &Hub{
		connections:    map[*websocket.Conn]bool{},
		subscribers:    map[chan Envelope]bool{},
		broadcast:      make(chan Envelope),
		flush:          make(chan bool),
		register:       make(chan connAndDoneChan),
		unregister:     make(chan connAndDoneChan),
		subscribe:      make(chan subAndDoneChan),
		unsubscribe:    make(chan subAndDoneChan),
		getQueueLength: make(chan chan int),
		shutdown:       make(chan bool),
		eventQueue:     make([]Envelope, 0),
	}
	go h.run()
	return h
}

// Emit queues an event for the next flush.
func (h *Hub) Emit(kind string, data any) {
	h.broadcast <- Envelope{Kind: kind, Data: data}
}

// Flush delivers every queued event to all subscribers and connections.
func (h *Hub) Flush() {
	h.flush <- true
}

func (h *Hub) QueueLength() int {
	lengthChan := make(chan int)
	h.getQueueLength <- lengthChan
	return <-lengthChan
}

// Subscribe returns a channel receiving every flushed event. Slow subscribers
// lose events rather than stalling the engine.
func (h *Hub) Subscribe() chan Envelope {
	ch := make(chan Envelope, subscriberBufferSize)
	doneChan := make(chan bool)
	h.subscribe <- subAndDoneChan{ch: ch, doneChan: doneChan}
	<-doneChan
	return ch
}

func (h *Hub) Unsubscribe(ch chan Envelope) {
	doneChan := make(chan bool)
	h.unsubscribe <- subAndDoneChan{ch: ch, doneChan: doneChan}
	<-doneChan
}

func (h *Hub) RegisterConnection(ws *websocket.Conn) {
	doneChan := make(chan bool)
	h.register <- connAndDoneChan{connection: ws, doneChan: doneChan}
	<-doneChan
}

func (h *Hub) UnregisterConnection(ws *websocket.Conn) {
	doneChan := make(chan bool)
	h.unregister <- connAndDoneChan{connection: ws, doneChan: doneChan}
	<-doneChan
}

// Shutdown stops the run loop and closes every connection and subscriber channel.
func (h *Hub) Shutdown() {
	h.shutdown <- true
	for h.isRunning.Load() {
		time.Sleep(shutdownPollInterval)
	}
}

//nolint:gocognit // the run loop is one flat select by design
func (h *Hub) run() {
	if h.isRunning.Load() {
		return
	}
	h.isRunning.Store(true)
	closeConnection := func(conn *websocket.Conn) {
		if _, ok := h.connections[conn]; ok {
			delete(h.connections, conn)
			if err := eris.Wrap(conn.Close(), ""); err != nil {
				log.Logger.Error().Err(err).Msg(eris.ToString(err, true))
			}
		}
	}
Loop:
	for h.isRunning.Load() {
		select {
		case lengthChan := <-h.getQueueLength:
			lengthChan <- len(h.eventQueue)
		case cd := <-h.register:
			h.connections[cd.connection] = true
			cd.doneChan <- true
		case cd := <-h.unregister:
			closeConnection(cd.connection)
			cd.doneChan <- true
		case sd := <-h.subscribe:
			h.subscribers[sd.ch] = true
			sd.doneChan <- true
		case sd := <-h.unsubscribe:
			if _, ok := h.subscribers[sd.ch]; ok {
				delete(h.subscribers, sd.ch)
				close(sd.ch)
			}
			sd.doneChan <- true
		case event := <-h.broadcast:
			h.eventQueue = append(h.eventQueue, event)
		case <-h.flush:
			h.deliverQueued()
			h.eventQueue = h.eventQueue[:0]
		case <-h.shutdown:
			go func() {
				for range h.shutdown { //nolint:revive // drains the channel until closed
				}
			}()
			for conn := range h.connections {
				closeConnection(conn)
			}
			for ch := range h.subscribers {
				delete(h.subscribers, ch)
				close(ch)
			}
			break Loop
		}
	}
	h.isRunning.Store(false)
}

func (h *Hub) deliverQueued() {
	for _, event := range h.eventQueue {
		for ch := range h.subscribers {
			select {
			case ch <- event:
			default:
				log.Logger.Warn().Str("kind", event.Kind).Msg("subscriber buffer full, dropping event")
			}
		}
	}

	if len(h.connections) == 0 {
		return
	}
	payloads := make([][]byte, 0, len(h.eventQueue))
	for _, event := range h.eventQueue {
		data, err := json.Marshal(event)
		if err != nil {
			log.Logger.Error().Err(err).Msg("event payload must be json serializable")
			continue
		}
		payloads = append(payloads, data)
	}
	for conn := range h.connections {
		for _, data := range payloads {
			if err := eris.Wrap(conn.SetWriteDeadline(time.Now().Add(writeDeadline)), ""); err != nil {
				log.Logger.Error().Err(err).Msg(eris.ToString(err, true))
				closeDeadConnection(h, conn)
				break
			}
			if err := eris.Wrap(conn.WriteMessage(websocket.TextMessage, data), ""); err != nil {
				log.Logger.Error().Err(err).Msg(eris.ToString(err, true))
				closeDeadConnection(h, conn)
				break
			}
		}
	}
}

// closeDeadConnection removes a connection from inside the run loop itself,
// so it must not go through the unregister channel.
func closeDeadConnection(h *Hub, conn *websocket.Conn) {
	delete(h.connections, conn)
	if err := conn.Close(); err != nil {
		log.Logger.Error().Err(err).Msg("failed to close websocket connection")
	}
}

// NewWebSocketEventHandler returns the connection handler the transport layer
// mounts on its events endpoint. It keeps the connection registered until the
// peer goes away; the hub pushes events, the peer is not expected to talk back.
func (h *Hub) NewWebSocketEventHandler() func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		h.RegisterConnection(conn)
		// A departed peer is pruned on the next flush when its write fails, so
		// there is no unregister here; this loop only holds the handler open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
