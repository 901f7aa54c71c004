package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOptionsDefaults(t *testing.T) {
	o := PoolOptions{}.withDefaults()
	assert.Equal(t, 25, o.MaxOpenConns)
	assert.Equal(t, 25, o.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, o.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, o.PingTimeout)

	o = PoolOptions{MaxOpenConns: 4}.withDefaults()
	assert.Equal(t, 4, o.MaxIdleConns)
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "", PoolOptions{})
	require.Error(t, err)
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, schema, "reference_id")
}
