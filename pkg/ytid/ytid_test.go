package ytid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, tt := range tests {
		got, err := Parse(tt.ref)
		require.NoError(t, err, "ref %q", tt.ref)
		assert.Equal(t, tt.want, got, "ref %q", tt.ref)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, ref := range []string{
		"",
		"   ",
		"tooshort",
		"waytoolongtobeavideoid",
		"dQw4w9WgXc!",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch",
	} {
		_, err := Parse(ref)
		assert.ErrorIs(t, err, ErrInvalidVideoReference, "ref %q", ref)
	}
}
