package room

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDGenerator_Shape(t *testing.T) {
	req := require.New(t)
	pattern := regexp.MustCompile(`^[0-9a-z]+$`)

	tests := []struct {
		name   string
		length int
		want   int
	}{
		{name: "default length", length: DefaultIDLength, want: 6},
		{name: "custom length", length: 12, want: 12},
		{name: "non positive falls back to default", length: 0, want: DefaultIDLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := IDGenerator(tt.length)
			for i := 0; i < 50; i++ {
				id, err := gen()
				req.NoError(err)
				req.Len(id, tt.want)
				req.Regexp(pattern, id)
			}
		})
	}
}

func TestIDGenerator_Varies(t *testing.T) {
	req := require.New(t)
	gen := IDGenerator(DefaultIDLength)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := gen()
		req.NoError(err)
		seen[id] = struct{}{}
	}
	req.Greater(len(seen), 90)
}
