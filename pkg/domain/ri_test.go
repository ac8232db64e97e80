package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/pkg/domain"
)

func TestParseRI(t *testing.T) {
	root := domain.Root()
	sub, err := domain.ParsePath("/sub/device")
	require.NoError(t, err)

	cases := []struct {
		name   string
		token  string
		prefix domain.NodePath
		want   string
	}{
		{"empty defaults to everything", "", root, "**:*:*"},
		{"method only default signal", "**:chng", root, "**:chng:*"},
		{"full form", "a/b:get:chng", root, "a/b:get:chng"},
		{"literal path resolves against prefix", "status:chng", sub, "sub/device/status:chng:*"},
		{"wildcard path glued under prefix", "**:chng", sub, "sub/device/**:chng:*"},
		{"empty under prefix", "", sub, "sub/device/**:*:*"},
		{"absolute path ignores prefix", "/other:chng", sub, "other:chng:*"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ri, err := domain.ParseRI(tc.token, tc.prefix)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ri.String())
		})
	}
}

func TestParseRI_InvalidPath(t *testing.T) {
	_, err := domain.ParseRI("a b:chng", domain.Root())
	assert.ErrorIs(t, err, domain.ErrParse)
}
