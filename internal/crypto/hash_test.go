package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{
			name:  "known value",
			token: "abc",
			want:  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			name:  "empty token",
			token: "",
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HashToken(tt.token))
		})
	}
}

func TestRandomToken(t *testing.T) {
	seen := make(map[string]struct{})
	for range 20 {
		token, err := RandomToken()
		require.NoError(t, err)
		// 32 байта в base64 без паддинга
		assert.Len(t, token, 43)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")

		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}
