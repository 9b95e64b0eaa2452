package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	t.Run("same text yields same id", func(t *testing.T) {
		assert.Equal(t, IDFromContent("enwiki:Barack Obama"), IDFromContent("enwiki:Barack Obama"))
	})

	t.Run("different text yields different ids", func(t *testing.T) {
		assert.NotEqual(t, IDFromContent("enwiki:Barack Obama"), IDFromContent("enwiki:Michelle Obama"))
	})

	t.Run("empty text is hashed too", func(t *testing.T) {
		assert.NotZero(t, IDFromContent(""))
	})
}
