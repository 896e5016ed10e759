package database

import (
	"testing"
	"time"

	"gl3e_manager/internal/domain/audit"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfigWithDefaults(t *testing.T) {
	p := PoolConfig{}.withDefaults()
	assert.Equal(t, defaultMaxOpenConns, p.MaxOpenConns)
	assert.Equal(t, defaultMaxIdleConns, p.MaxIdleConns)
	assert.Equal(t, defaultConnMaxLifetime, p.ConnMaxLifetime)
	assert.Equal(t, defaultConnMaxIdleTime, p.ConnMaxIdleTime)
}

func TestPoolConfigKeepsExplicitValues(t *testing.T) {
	p := PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
	}.withDefaults()
	assert.Equal(t, 10, p.MaxOpenConns)
	assert.Equal(t, 5, p.MaxIdleConns)
	assert.Equal(t, time.Minute, p.ConnMaxLifetime)
	assert.Equal(t, 30*time.Second, p.ConnMaxIdleTime)
}

func TestActivityLogRepositoryIsAuditSink(t *testing.T) {
	var sink audit.Sink = NewPostgresActivityLogRepository(nil)
	assert.NotNil(t, sink)
}
