package repository

import (
	"errors"
	"testing"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	tests := map[string]string{
		"合同":           "%合同%",
		"100%":         `%100\%%`,
		"HR_2022":      `%HR\_2022%`,
		`C:\archive`:   `%C:\\archive%`,
		"FIN-2023-001": "%FIN-2023-001%",
	}
	for in, want := range tests {
		assert.Equal(t, want, containsPattern(in), in)
	}
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), models.ErrRecordNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}
