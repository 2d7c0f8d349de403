package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// baseWriteWait - запас на запись любого кадра, включая ping и close.
	baseWriteWait = 5 * time.Second
	// minWriteRate - байт в секунду, ниже которых клиент считается зависшим.
	minWriteRate = 16 * 1024
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10
	// клиенту писать нечего, кроме control-кадров
	maxInbound = 4 * 1024
	sendQueue  = 16
)

// Client - подключение пользователя, по которому сервер шлёт события заказов.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	send   chan []byte
	log    *logrus.Entry
}

func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendQueue),
		log:    hub.log.WithField("user_id", userID),
	}
}

// Serve регистрирует клиента и блокируется до разрыва соединения.
func (c *Client) Serve() {
	c.hub.Register(c)
	go c.deliver()
	c.awaitClose()
}

// writeDeadline растёт с размером события: крупная карточка заказа
// не должна обрывать медленное, но живое соединение.
func writeDeadline(size int) time.Time {
	extra := time.Duration(size) * time.Second / minWriteRate
	return time.Now().Add(baseWriteWait + extra)
}

// awaitClose читает только control-кадры и возвращается, когда клиент ушёл
// или перестал отвечать на ping.
func (c *Client) awaitClose() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("соединение оборвано")
			}
			return
		}
	}
}

// deliver пишет события из очереди и держит соединение ping-ами.
// Закрытая очередь означает, что хаб отключил клиента.
func (c *Client) deliver() {
	keepalive := time.NewTicker(pingEvery)
	defer keepalive.Stop()
	defer c.conn.Close()

	for {
		var (
			kind    int
			payload []byte
		)
		select {
		case event, open := <-c.send:
			if !open {
				_ = c.conn.SetWriteDeadline(writeDeadline(0))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			kind, payload = websocket.TextMessage, event
		case <-keepalive.C:
			kind = websocket.PingMessage
		}

		_ = c.conn.SetWriteDeadline(writeDeadline(len(payload)))
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			c.log.WithError(err).Debug("не удалось отправить кадр")
			return
		}
	}
}
