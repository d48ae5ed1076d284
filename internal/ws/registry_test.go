package ws_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"syncboard/internal/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func newTestConn(roomID, userID uuid.UUID, name string) (*ws.Conn, *fakeWire) {
	w := newFakeWire()
	c := ws.NewConn(w, roomID, userID, name)
	c.Start()
	return c, w
}

func TestRegistry_AtMostOneConnectionPerUser(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()
	userID := uuid.New()

	first, firstWire := newTestConn(roomID, userID, "Alice")
	second, _ := newTestConn(roomID, userID, "Alice")

	registry.Register(first)
	registry.Register(second)

	// Старое соединение закрыто нормальным кодом
	assert.True(t, firstWire.isClosed())
	assert.Equal(t, websocket.CloseNormalClosure, firstWire.sentCloseCode())

	// Живым осталось ровно одно
	assert.Len(t, registry.Presence(roomID), 1)

	registry.Unregister(second)
}

func TestRegistry_UnregisterReleasesEmptyRoom(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()

	conn, _ := newTestConn(roomID, uuid.New(), "Alice")
	registry.Register(conn)
	assert.True(t, registry.Unregister(conn))

	// Запись комнаты освобождена: presence пуст, executor остановлен
	assert.Empty(t, registry.Presence(roomID))
	err := registry.Do(context.Background(), roomID, func() error { return nil })
	assert.ErrorIs(t, err, ws.ErrRoomClosed)

	// Повторный Unregister — no-op
	assert.False(t, registry.Unregister(conn))
}

func TestRegistry_PresenceSnapshot(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()
	aliceID, bobID := uuid.New(), uuid.New()

	alice, _ := newTestConn(roomID, aliceID, "Alice")
	bob, _ := newTestConn(roomID, bobID, "Bob")
	registry.Register(alice)
	registry.Register(bob)

	users := registry.Presence(roomID)
	assert.Len(t, users, 2)

	ids := []string{users[0].ID, users[1].ID}
	assert.Contains(t, ids, aliceID.String())
	assert.Contains(t, ids, bobID.String())

	// Другая комната — пусто
	assert.Empty(t, registry.Presence(uuid.New()))
}

func TestRegistry_BroadcastReachesAllConnections(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()

	_, wires := registerThree(registry, roomID)

	registry.Broadcast(roomID, map[string]string{"type": "hello"})

	for _, w := range wires {
		waitForEvent(t, w, "hello")
	}
}

func TestRegistry_BroadcastExceptSkipsSender(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()

	conns, wires := registerThree(registry, roomID)

	registry.BroadcastExcept(roomID, conns[0], map[string]string{"type": "hello"})

	waitForEvent(t, wires[1], "hello")
	waitForEvent(t, wires[2], "hello")
	assert.Empty(t, wires[0].eventsOfType("hello"))
}

func TestRegistry_BroadcastIsolatesDeadConnection(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()

	conns, wires := registerThree(registry, roomID)

	// X умирает до рассылки
	conns[0].Close(websocket.CloseAbnormalClosure, "")

	registry.Broadcast(roomID, map[string]string{"type": "hello"})

	// Y и Z получают сообщение несмотря на сбой X
	waitForEvent(t, wires[1], "hello")
	waitForEvent(t, wires[2], "hello")

	// X выброшен из комнаты как неявно отключившийся
	assert.Len(t, registry.Presence(roomID), 2)
}

func TestRegistry_SlowWriterGetsDropped(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()

	_, wires := registerThree(registry, roomID)
	wires[0].setFailWrites(true)

	registry.Broadcast(roomID, map[string]string{"type": "hello"})

	waitForEvent(t, wires[1], "hello")
	waitForEvent(t, wires[2], "hello")

	// Насос записи X наткнулся на ошибку и закрыл соединение
	assert.Eventually(t, func() bool {
		return wires[0].isClosed()
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_DoSerializesMutations(t *testing.T) {
	registry := ws.NewRegistry()
	roomID := uuid.New()

	conn, _ := newTestConn(roomID, uuid.New(), "Alice")
	registry.Register(conn)

	// Счетчик без собственной синхронизации: гонку поймает -race,
	// если executor не сериализует задания
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := registry.Do(context.Background(), roomID, func() error {
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestRegistry_DoUnknownRoom(t *testing.T) {
	registry := ws.NewRegistry()

	err := registry.Do(context.Background(), uuid.New(), func() error { return nil })

	assert.ErrorIs(t, err, ws.ErrRoomClosed)
}

func registerThree(registry *ws.Registry, roomID uuid.UUID) ([]*ws.Conn, []*fakeWire) {
	conns := make([]*ws.Conn, 3)
	wires := make([]*fakeWire, 3)
	names := []string{"X", "Y", "Z"}
	for i := range conns {
		conns[i], wires[i] = newTestConn(roomID, uuid.New(), names[i])
		registry.Register(conns[i])
	}
	return conns, wires
}
