package kvfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	opts, err := decodeConfig(nil)
	require.NoError(t, err)
	_, ok, err := opts.visibility()
	require.NoError(t, err)
	assert.False(t, ok)

	opts, err = decodeConfig(Config{"visibility": "private", "mimetype": "text/plain"})
	require.NoError(t, err)
	v, ok, err := opts.visibility()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Private, v)

	_, err = decodeConfig(Config{"visibility": map[string]int{"public": 1}})
	assert.Error(t, err)
}

func TestConfigVisibility(t *testing.T) {
	v, ok, err := configVisibility("write", "p", Config{"visibility": Public})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Public, v)

	_, _, err = configVisibility("write", "p", Config{"visibility": "world"})
	assert.Equal(t, ErrInvalidArgument, CodeOf(err))
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("public")
	require.NoError(t, err)
	assert.Equal(t, Public, v)

	_, err = ParseVisibility("")
	assert.Error(t, err)
	_, err = ParseVisibility("Public")
	assert.Error(t, err)
}
