package ws_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"syncboard/internal/model"
	"syncboard/internal/reorder"
	"syncboard/internal/repository"
	"syncboard/internal/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

// fakeWire — транспорт в памяти, записывает отправленные кадры
type fakeWire struct {
	mu         sync.Mutex
	frames     [][]byte
	closed     bool
	closeCode  int
	failWrites bool
}

var _ ws.Wire = (*fakeWire)(nil)

func newFakeWire() *fakeWire {
	return &fakeWire{closeCode: -1}
}

func (f *fakeWire) ReadMessage() (int, []byte, error) {
	// Тесты вызывают обработчики напрямую, цикл чтения не используется
	return 0, nil, errors.New("closed")
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		f.closeCode = int(binary.BigEndian.Uint16(data[:2]))
	}
	return nil
}

func (f *fakeWire) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeWire) SetWriteDeadline(t time.Time) error { return nil }
func (f *fakeWire) SetPongHandler(h func(string) error) {}

func (f *fakeWire) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWire) setFailWrites(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = v
}

func (f *fakeWire) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeWire) sentCloseCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

// eventsOfType возвращает декодированные кадры с данным type
func (f *fakeWire) eventsOfType(eventType string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, frame := range f.frames {
		var m map[string]any
		if json.Unmarshal(frame, &m) != nil {
			continue
		}
		if m["type"] == eventType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeWire) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// waitForEvent ждет появления события указанного типа на проводе
func waitForEvent(t *testing.T, w *fakeWire, eventType string) map[string]any {
	t.Helper()
	var got map[string]any
	assert.Eventually(t, func() bool {
		events := w.eventsOfType(eventType)
		if len(events) == 0 {
			return false
		}
		got = events[len(events)-1]
		return true
	}, time.Second, 5*time.Millisecond, "no %s event", eventType)
	return got
}

// memStore — CardStore в памяти с той же семантикой перестановок, что и
// CardRepository (через пакет reorder)
type memStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*model.Card
	fail  bool
}

func newMemStore() *memStore {
	return &memStore{cards: make(map[uuid.UUID]*model.Card)}
}

func (s *memStore) columnCards(columnID, exceptID uuid.UUID) []model.Card {
	var out []model.Card
	for _, c := range s.cards {
		if c.ColumnID == columnID && c.ID != exceptID {
			out = append(out, *c)
		}
	}
	return out
}

func (s *memStore) apply(changes []reorder.Change) {
	for _, ch := range changes {
		s.cards[ch.ID].Position = ch.Position
	}
}

func (s *memStore) Create(ctx context.Context, card *model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	card.Position = len(s.columnCards(card.ColumnID, uuid.Nil))
	cp := *card
	s.cards[card.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	cp := *card
	return &cp, nil
}

func (s *memStore) UpdateFields(ctx context.Context, id uuid.UUID, title, description *string) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, assert.AnError
	}
	card, ok := s.cards[id]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	if title != nil {
		card.Title = *title
	}
	if description != nil {
		card.Description = *description
	}
	cp := *card
	return &cp, nil
}

func (s *memStore) Move(ctx context.Context, cardID, toColumnID uuid.UUID, toPosition int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	card, ok := s.cards[cardID]
	if !ok {
		return repository.ErrCardNotFound
	}

	if card.ColumnID != toColumnID {
		s.apply(reorder.Normalize(s.columnCards(card.ColumnID, cardID)))
	}
	pos, changes := reorder.Insert(s.columnCards(toColumnID, cardID), toPosition)
	s.apply(changes)
	card.ColumnID = toColumnID
	card.Position = pos
	return nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	card, ok := s.cards[id]
	if !ok {
		return repository.ErrCardNotFound
	}
	delete(s.cards, id)
	s.apply(reorder.Normalize(s.columnCards(card.ColumnID, uuid.Nil)))
	return nil
}

// memColumns — ColumnStore в памяти: знает, какой комнате принадлежит колонка
type memColumns struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]uuid.UUID
}

func newMemColumns() *memColumns {
	return &memColumns{rooms: make(map[uuid.UUID]uuid.UUID)}
}

func (s *memColumns) add(columnID, roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[columnID] = roomID
}

func (s *memColumns) GetByID(ctx context.Context, id uuid.UUID) (*model.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrColumnNotFound
	}
	return &model.Column{ID: id, RoomID: roomID}, nil
}

// columnOrder возвращает ID карточек колонки в порядке позиций
func (s *memStore) columnOrder(t *testing.T, columnID uuid.UUID) []uuid.UUID {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := s.columnCards(columnID, uuid.Nil)
	out := make([]uuid.UUID, len(cards))
	seen := make(map[int]bool)
	for _, c := range cards {
		// Инвариант: позиции ровно {0..n-1}
		assert.GreaterOrEqual(t, c.Position, 0)
		assert.Less(t, c.Position, len(cards))
		assert.False(t, seen[c.Position], "duplicate position %d in column", c.Position)
		seen[c.Position] = true
		out[c.Position] = c.ID
	}
	return out
}

func (s *memStore) seed(card model.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := card
	s.cards[card.ID] = &cp
}
