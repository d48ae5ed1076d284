package auth_test

import (
	"os"
	"testing"
	"time"

	"syncboard/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestGenerateAndParseToken(t *testing.T) {
	// Устанавливаем переменные окружения для тестов
	os.Setenv("JWT_SECRET", "test-secret-key")
	os.Setenv("JWT_EXPIRY_HOURS", "24")

	// Генерируем токен
	userID := "test-user-id"
	token, err := auth.GenerateToken(userID)

	// Проверяем, что токен создан без ошибок
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// Парсим токен
	parsedUserID, err := auth.ParseToken(token)

	// Проверяем, что токен был успешно проверен и из него извлечен правильный ID пользователя
	assert.NoError(t, err)
	assert.Equal(t, userID, parsedUserID)
}

func TestParseToken_InvalidToken(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-key")

	// Пытаемся парсить неверный токен
	_, err := auth.ParseToken("invalid-token")

	assert.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestParseToken_ExpiredToken(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-key")

	// Создаем токен с истекшим сроком действия
	claims := jwt.MapClaims{
		"user_id": "test-user-id",
		"exp":     time.Now().Add(-1 * time.Hour).Unix(), // Токен истек 1 час назад
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := token.SignedString([]byte("test-secret-key"))

	// Пытаемся парсить истекший токен
	_, err := auth.ParseToken(expiredToken)

	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-key")

	// Токен подписан другим секретом
	claims := jwt.MapClaims{
		"user_id": "test-user-id",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	forged, _ := token.SignedString([]byte("another-secret"))

	_, err := auth.ParseToken(forged)

	assert.Error(t, err)
}
