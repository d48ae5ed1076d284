package handler

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"syncboard/internal/middleware"
	"syncboard/internal/model"
	"syncboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Символы кода комнаты: без неоднозначных 0/O, 1/I/L
const (
	codeChars  = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength = 8
)

type RoomHandler struct {
	roomRepo   *repository.RoomRepository
	memberRepo *repository.MemberRepository
}

func NewRoomHandler(roomRepo *repository.RoomRepository, memberRepo *repository.MemberRepository) *RoomHandler {
	return &RoomHandler{
		roomRepo:   roomRepo,
		memberRepo: memberRepo,
	}
}

type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"room_code" binding:"required,len=8"`
}

type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomCode  string    `json:"room_code"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CardResponse struct {
	ID          string `json:"id"`
	ColumnID    string `json:"column_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	CreatedBy   string `json:"created_by"`
}

type ColumnResponse struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Position int            `json:"position"`
	Cards    []CardResponse `json:"cards"`
}

type RoomDetailResponse struct {
	RoomResponse
	Columns []ColumnResponse `json:"columns"`
}

func newRoomResponse(room *model.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID.String(),
		Name:      room.Name,
		RoomCode:  room.RoomCode,
		CreatedBy: room.CreatedBy.String(),
		CreatedAt: room.CreatedAt,
	}
}

// Create создает комнату с колонками по умолчанию
func (h *RoomHandler) Create(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	code, err := h.generateRoomCode(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate room code"})
		return
	}

	room := &model.Room{
		ID:        uuid.New(),
		Name:      req.Name,
		RoomCode:  code,
		CreatedBy: authenticatedUserID,
	}

	if err := h.roomRepo.Create(c.Request.Context(), room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, newRoomResponse(room))
}

// generateRoomCode подбирает свободный код; коллизия крайне маловероятна
func (h *RoomHandler) generateRoomCode(c *gin.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		buf := make([]byte, codeLength)
		for i := range buf {
			buf[i] = codeChars[rand.Intn(len(codeChars))]
		}
		code := string(buf)

		exists, err := h.roomRepo.CodeExists(c.Request.Context(), code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("failed to generate unique room code")
}

// GetAll возвращает комнаты текущего пользователя
func (h *RoomHandler) GetAll(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	rooms, err := h.roomRepo.ListForUser(c.Request.Context(), authenticatedUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for i := range rooms {
		response = append(response, newRoomResponse(&rooms[i]))
	}

	c.JSON(http.StatusOK, response)
}

// GetByID возвращает полное состояние доски: колонки с карточками по позициям
func (h *RoomHandler) GetByID(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}

	// Сначала проверяем членство
	isMember, err := h.memberRepo.IsMember(c.Request.Context(), roomID, authenticatedUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this room"})
		return
	}

	room, err := h.roomRepo.GetDetail(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}

	detail := RoomDetailResponse{
		RoomResponse: newRoomResponse(room),
		Columns:      make([]ColumnResponse, 0, len(room.Columns)),
	}
	for _, col := range room.Columns {
		colResp := ColumnResponse{
			ID:       col.ID.String(),
			Title:    col.Title,
			Position: col.Position,
			Cards:    make([]CardResponse, 0, len(col.Cards)),
		}
		for _, card := range col.Cards {
			colResp.Cards = append(colResp.Cards, CardResponse{
				ID:          card.ID.String(),
				ColumnID:    card.ColumnID.String(),
				Title:       card.Title,
				Description: card.Description,
				Position:    card.Position,
				CreatedBy:   card.CreatedBy.String(),
			})
		}
		detail.Columns = append(detail.Columns, colResp)
	}

	c.JSON(http.StatusOK, detail)
}

// Join добавляет пользователя в комнату по коду. Повторный вход идемпотентен.
func (h *RoomHandler) Join(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	room, err := h.roomRepo.GetByCode(c.Request.Context(), req.RoomCode)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid room code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}

	if err := h.memberRepo.Add(c.Request.Context(), room.ID, authenticatedUserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		return
	}

	c.JSON(http.StatusOK, newRoomResponse(room))
}

// Delete удаляет комнату; разрешено только создателю
func (h *RoomHandler) Delete(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}

	room, err := h.roomRepo.GetByID(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		return
	}

	if room.CreatedBy != authenticatedUserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the room creator can delete it"})
		return
	}

	if err := h.roomRepo.Delete(c.Request.Context(), roomID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete room"})
		return
	}

	c.Status(http.StatusNoContent)
}
