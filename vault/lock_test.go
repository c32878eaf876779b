//go:build unix

package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/stakeledger-go/config"
)

func TestOpenLocksDataDir(t *testing.T) {
	cfg := testConfig(t, config.BackendBolt)

	v, err := Open(cfg, Options{})
	require.NoError(t, err)

	_, err = Open(cfg, Options{})
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, v.Close())

	v, err = Open(cfg, Options{Wait: true})
	require.NoError(t, err)
	require.NoError(t, v.Close())
}
