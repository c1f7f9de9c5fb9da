package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	client, err := BuildRedisClient(context.Background(), &appconfig.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = BuildRedisClient(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), Backend: appconfig.BackendMemory}

	client, err := BuildRedisClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	client, err = BuildRedisClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err, "drafts fall back to memory")
	assert.Nil(t, client)
}

func TestBuildRedisClientRequiredForSupabaseFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &appconfig.Config{RedisAddr: addr, Backend: appconfig.BackendSupabase}
	client, err := BuildRedisClient(context.Background(), cfg, logging.New("error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "change feed")
	assert.Nil(t, client)
}
