package options_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/pkg/options"
)

func TestDefaults(t *testing.T) {
	c := options.NewConfig()

	assert.True(t, c.AutoGet())
	assert.True(t, c.AutoProbe())
	assert.True(t, c.Cache())
	assert.False(t, c.Raw())
	assert.False(t, c.Debug())
	assert.False(t, c.ViMode())
	assert.Equal(t, 3, c.CallAttempts())
	assert.Equal(t, 60*time.Second, c.CallTimeout())
	assert.Equal(t, 250*time.Millisecond, c.CallQueryTimeout())
	assert.Equal(t, 60*time.Second, c.CallRetryTimeout())
	assert.Equal(t, time.Second, c.AutoGetTimeout())
}

func TestSet_BoolForms(t *testing.T) {
	c := options.NewConfig()
	r := options.NewRegistry(c)

	// Bare bool means true.
	require.NoError(t, r.Set("raw", ""))
	assert.True(t, c.Raw())

	require.NoError(t, r.Set("raw", "false"))
	assert.False(t, c.Raw())

	// The "no" alias inverts.
	require.NoError(t, r.Set("noautoget", ""))
	assert.False(t, c.AutoGet())
	require.NoError(t, r.Set("noautoget", "false"))
	assert.True(t, c.AutoGet())

	assert.Error(t, r.Set("raw", "maybe"))
}

func TestSet_IntAndDuration(t *testing.T) {
	c := options.NewConfig()
	r := options.NewRegistry(c)

	require.NoError(t, r.Set("call_attempts", "5"))
	assert.Equal(t, 5, c.CallAttempts())
	assert.Error(t, r.Set("call_attempts", "0"))
	assert.Error(t, r.Set("call_attempts", ""))

	// Durations accept Go syntax and bare seconds.
	require.NoError(t, r.Set("call_timeout", "1500ms"))
	assert.Equal(t, 1500*time.Millisecond, c.CallTimeout())
	require.NoError(t, r.Set("call_query_timeout", "0.5"))
	assert.Equal(t, 500*time.Millisecond, c.CallQueryTimeout())
	assert.Error(t, r.Set("call_timeout", "soon"))
	assert.Error(t, r.Set("call_timeout", "-1"))
}

func TestSet_UnknownOption(t *testing.T) {
	r := options.NewRegistry(options.NewConfig())
	assert.Error(t, r.Set("bogus", "1"))
	// "no" aliases exist for bool options only.
	assert.Error(t, r.Set("nocall_attempts", ""))
}

func TestNames_SortedAndComplete(t *testing.T) {
	r := options.NewRegistry(options.NewConfig())
	names := r.Names()
	assert.Equal(t, "autoget", names[0])
	assert.Contains(t, names, "vimode")
	assert.Contains(t, names, "call_retry_timeout")
	assert.IsIncreasing(t, names)
}

func TestOnDebug_HookFires(t *testing.T) {
	c := options.NewConfig()
	r := options.NewRegistry(c)

	var got []bool
	c.OnDebug(func(on bool) { got = append(got, on) })

	require.NoError(t, r.Set("debug", ""))
	require.NoError(t, r.Set("nodebug", ""))
	assert.Equal(t, []bool{true, false}, got)
	assert.False(t, c.Debug())
}

func TestRegister_ExtensionOption(t *testing.T) {
	r := options.NewRegistry(options.NewConfig())

	val := "off"
	r.Register(&options.Descriptor{
		Name: "mode",
		Kind: options.KindBool,
		Get:  func() string { return val },
		Set:  func(v string) error { val = v; return nil },
	})
	require.NoError(t, r.Set("mode", "true"))
	assert.Equal(t, "true", val)

	d, negated, ok := r.Lookup("nomode")
	require.True(t, ok)
	assert.True(t, negated)
	assert.Equal(t, "mode", d.Name)
}
