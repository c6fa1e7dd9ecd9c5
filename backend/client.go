package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	maxClientsPerIdentity = 5
	writeWait             = 10 * time.Second
)

var errTooManyClients = errors.New("too many clients with IP")

// Client wraps a [websocket.Conn] to add thread safety to
// WriteMessage.
type Client struct {
	*websocket.Conn
	ID       uuid.UUID
	Identity string

	// limiter is shared by every connection of the same identity and is
	// set once the client is registered.
	limiter *rate.Limiter

	m sync.Mutex
}

func newClient(conn *websocket.Conn, identity string) *Client {
	return &Client{Conn: conn, ID: uuid.New(), Identity: identity}
}

func (c *Client) WriteMessage(messageType int, data []byte) error {
	c.m.Lock()
	defer c.m.Unlock()

	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) WriteText(msg string) error {
	return c.WriteMessage(websocket.TextMessage, []byte(msg))
}

type registration struct {
	client *Client
	rsp    chan error
}

// clientManager fans canvas events out to every connected websocket client.
type clientManager struct {
	done       chan struct{}
	broadcast  chan OutgoingMessage
	register   chan registration
	unregister chan *Client
	numclients chan int
}

func newClientManager() *clientManager {
	return &clientManager{
		done:       make(chan struct{}),
		broadcast:  make(chan OutgoingMessage),
		register:   make(chan registration),
		unregister: make(chan *Client),
		numclients: make(chan int),
	}
}

func (cm *clientManager) Run(ctx context.Context) {
	select {
	case <-cm.done:
		panic("manager has already been run")
	default:
	}
	defer close(cm.done)

	clients := make(map[*Client]struct{})

	type rateLimitData struct {
		clients int
		limiter *rate.Limiter
	}
	rateLimits := make(map[string]*rateLimitData)

	drop := func(client *Client) {
		delete(clients, client)
		client.Close()

		limit := rateLimits[client.Identity]
		limit.clients--
		if limit.clients <= 0 {
			delete(rateLimits, client.Identity)
		}
	}
	defer func() {
		for client := range clients {
			client.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-cm.broadcast:
			msg.ClientCount = len(clients)
			jsonMsg, err := json.Marshal(msg)
			if err != nil {
				log.Printf("error marshaling json: %v", err)
				continue
			}

			for client := range clients {
				err := client.WriteMessage(websocket.TextMessage, jsonMsg)
				if err != nil {
					log.Printf("error sending message to client %s: %v", client.ID, err)
					drop(client)
				}
			}

		case r := <-cm.register:
			client := r.client
			limit := rateLimits[client.Identity]
			if limit == nil {
				limit = &rateLimitData{limiter: rate.NewLimiter(rate.Every(time.Second), 5)}
				rateLimits[client.Identity] = limit
			}
			if limit.clients >= maxClientsPerIdentity {
				r.rsp <- errTooManyClients
				continue
			}
			limit.clients++
			client.limiter = limit.limiter
			clients[client] = struct{}{}

			r.rsp <- nil

		case client := <-cm.unregister:
			if _, ok := clients[client]; !ok {
				continue
			}
			drop(client)

		case cm.numclients <- len(clients):
		}
	}
}

func (cm *clientManager) Register(client *Client) error {
	rsp := make(chan error, 1)
	select {
	case <-cm.done:
		return errors.New("client manager has exited")
	case cm.register <- registration{client: client, rsp: rsp}:
	}
	return <-rsp
}

func (cm *clientManager) Unregister(client *Client) {
	select {
	case <-cm.done:
	case cm.unregister <- client:
	}
}

func (cm *clientManager) Broadcast(msg OutgoingMessage) {
	select {
	case <-cm.done:
	case cm.broadcast <- msg:
	}
}

func (cm *clientManager) Num() int {
	select {
	case <-cm.done:
		return 0
	case num := <-cm.numclients:
		return num
	}
}
