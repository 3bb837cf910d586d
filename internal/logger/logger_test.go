package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	l, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New("bogus", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestFirmFields(t *testing.T) {
	f := Firm(7, "SHOP")
	require.Len(t, f, 2)
	assert.Equal(t, "firm_id", f[0].Key)
	assert.Equal(t, "SHOP", f[1].String)
}
