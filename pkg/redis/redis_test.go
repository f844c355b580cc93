package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikkim/storeops-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	mr := miniredis.RunT(t)

	err := Init(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer Close()

	require.NotNil(t, GetClient())
	assert.NoError(t, Ping(context.Background()))
}

func TestInit_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	err := Init(&config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
	assert.Nil(t, GetClient())
}

func TestPing_WithoutClient(t *testing.T) {
	require.NoError(t, Close())
	assert.NoError(t, Ping(context.Background()))
}
