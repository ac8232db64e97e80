package render_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/internal/render"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
)

func plain() (*render.Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return render.NewPlain(&buf), &buf
}

func path(t *testing.T, s string) domain.NodePath {
	t.Helper()
	p, err := domain.ParsePath(s)
	require.NoError(t, err)
	return p
}

func TestValue(t *testing.T) {
	r, buf := plain()
	r.Value(map[string]any{"a": int64(1)})
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

func TestError_PlainHasNoEscapes(t *testing.T) {
	r, buf := plain()
	r.Error(errors.New("boom"))
	assert.Equal(t, "boom\n", buf.String())
}

func TestEvent(t *testing.T) {
	r, buf := plain()
	r.Event("a/b", "get", "chng", 1.5)
	assert.Equal(t, "a/b:get:chng: 1.5\n", buf.String())
}

func TestPrompt(t *testing.T) {
	r, _ := plain()
	assert.Equal(t, "/> ", r.Prompt(domain.Root(), true))
	assert.Equal(t, "/a/b> ", r.Prompt(path(t, "/a/b"), false))
}

func TestLs_NamesFlowOnOneLineWithoutValues(t *testing.T) {
	r, buf := plain()
	r.Ls([]render.LsItem{{Name: "alpha"}, {Name: "beta"}})
	assert.Equal(t, "alpha beta\n", buf.String())
}

func TestLs_ValuesAlignPerLine(t *testing.T) {
	r, buf := plain()
	r.Ls([]render.LsItem{
		{Name: "temperature", Value: 22.5, Got: true},
		{Name: "label"},
	})
	assert.Equal(t, "temperature  22.5\n      label\n", buf.String())
}

func TestLs_QuotesAwkwardNames(t *testing.T) {
	r, buf := plain()
	r.Ls([]render.LsItem{{Name: "with space"}})
	assert.Equal(t, "\"with space\"\n", buf.String())
}

func TestDir_MethodsAndSignals(t *testing.T) {
	r, buf := plain()
	r.Dir([]render.DirItem{
		{Method: domain.MethodDesc{Name: "dir"}},
		{Method: domain.MethodDesc{Name: "get", Flags: domain.FlagGetter}},
	}, []domain.SignalDesc{{Name: "chng", Source: "get"}})
	assert.Equal(t, "dir get\nget:chng\n", buf.String())
}

func TestTree(t *testing.T) {
	c := cache.New()
	c.Merge(path(t, "/a/b"), nil, nil, nil, domain.FreshShallow)
	c.Merge(path(t, "/a/c"), nil, nil, nil, domain.FreshShallow)

	r, buf := plain()
	r.Tree(c, domain.Root())
	assert.Equal(t, "└─a\n  ├─b\n  └─c\n", buf.String())
}
