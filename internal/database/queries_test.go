package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectKey(t *testing.T) {
	tcases := []struct {
		name     string
		accountA int
		accountB int
		expected string
	}{
		{
			name:     "ordered pair",
			accountA: 1,
			accountB: 2,
			expected: "1:2",
		},
		{
			name:     "reversed pair canonicalizes",
			accountA: 2,
			accountB: 1,
			expected: "1:2",
		},
		{
			name:     "same account",
			accountA: 7,
			accountB: 7,
			expected: "7:7",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DirectKey(tc.accountA, tc.accountB), "expected canonical direct key")
		})
	}
}
