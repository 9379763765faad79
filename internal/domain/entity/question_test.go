package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() Question {
	return Question{
		Text:          "Столица Франции?",
		Options:       StringArray{"Лондон", "Париж", "Берлин", "Мадрид"},
		CorrectOption: 1,
	}
}

func TestQuestion_Validate(t *testing.T) {
	q := validQuestion()
	assert.NoError(t, q.Validate())
}

func TestQuestion_ValidateRejectsEmptyText(t *testing.T) {
	q := validQuestion()
	q.Text = ""
	assert.Error(t, q.Validate())
}

func TestQuestion_ValidateRejectsWrongOptionCount(t *testing.T) {
	q := validQuestion()
	q.Options = StringArray{"Да", "Нет"}
	assert.Error(t, q.Validate())
}

func TestQuestion_ValidateRejectsEmptyOption(t *testing.T) {
	q := validQuestion()
	q.Options[2] = ""
	assert.Error(t, q.Validate())
}

func TestQuestion_ValidateRejectsCorrectOptionOutOfRange(t *testing.T) {
	q := validQuestion()
	q.CorrectOption = 4
	assert.Error(t, q.Validate())

	q.CorrectOption = -1
	assert.Error(t, q.Validate())
}

func TestQuestion_IsCorrect(t *testing.T) {
	q := validQuestion()
	assert.True(t, q.IsCorrect(1))
	assert.False(t, q.IsCorrect(0))
}

func TestStringArray_ScanAndValue(t *testing.T) {
	// Чтение JSONB из базы
	var options StringArray
	require.NoError(t, options.Scan([]byte(`["A","B","C","D"]`)))
	assert.Len(t, options, 4)

	// NULL из базы дает пустой массив
	var empty StringArray
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	// Пустой массив пишется как [], а не null
	value, err := StringArray{}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)
}

func TestClaimTxHash(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	hash := ClaimTxHash("room-1", 3, 42, at)
	assert.Equal(t, "claim_room-1_3_42_1700000000000", hash)
}

func TestNextRating(t *testing.T) {
	// Обычное начисление
	assert.Equal(t, 1270, NextRating(1200, 7))

	// Рейтинг ниже пола поднимается до стартового перед начислением
	assert.Equal(t, 1230, NextRating(900, 3))

	// Ноль очков не опускает рейтинг ниже текущего
	assert.Equal(t, 1500, NextRating(1500, 0))
}
