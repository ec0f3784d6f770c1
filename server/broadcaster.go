package server

import (
	"sync"

	"agora/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var sseClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "agora_sse_clients",
	Help: "Connected notification stream clients",
})

type sseClient struct {
	userID string
	ch     chan models.Notification
}

// Broadcaster fans notifications out to the stream clients of each user
type Broadcaster struct {
	sync.RWMutex
	clients map[string]sseClient
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]sseClient),
	}
}

// Notify sends n to every client of userID. Slow clients miss it.
func (b *Broadcaster) Notify(userID string, n models.Notification) {
	b.RLock()
	defer b.RUnlock()

	for key, client := range b.clients {
		if client.userID != userID {
			continue
		}
		select {
		case client.ch <- n:
		default:
			log.Warnf("Client channel full, skipping notification for client: %v", key)
		}
	}
}

func (b *Broadcaster) AddClient(key, userID string, ch chan models.Notification) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = sseClient{userID: userID, ch: ch}
	sseClients.Set(float64(len(b.clients)))
	log.WithFields(log.Fields{
		"key":   key,
		"user":  userID,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

// RemoveClient closes the client's channel. With a non-empty userID the
// client is only removed when it belongs to that user.
func (b *Broadcaster) RemoveClient(key, userID string) bool {
	b.Lock()
	defer b.Unlock()

	client, ok := b.clients[key]
	if !ok || (userID != "" && client.userID != userID) {
		return false
	}
	close(client.ch)
	delete(b.clients, key)
	sseClients.Set(float64(len(b.clients)))

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
	return true
}

func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client.ch)
		delete(b.clients, key)
	}
	sseClients.Set(0)
}
