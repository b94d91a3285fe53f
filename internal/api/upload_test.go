package api

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOwnsKey(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()

	assert.True(t, ownsKey(userID, userID.String()+"/photo.jpg"))
	assert.False(t, ownsKey(userID, other.String()+"/photo.jpg"))
	assert.False(t, ownsKey(userID, "photo.jpg"))
	assert.False(t, ownsKey(userID, userID.String()))

	// Path traversal cannot escape into another user's prefix.
	assert.False(t, ownsKey(userID, userID.String()+"/../"+other.String()+"/photo.jpg"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my dinner pic.PNG", "my_dinner_pic.PNG"},
		{"../../etc/passwd", "passwd"},
		{"..\\windows\\boot.ini", "boot.ini"},
		{"café menu.pdf", "caf__menu.pdf"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
