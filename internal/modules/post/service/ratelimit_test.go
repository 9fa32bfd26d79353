package post

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAndSetRateLimitWithoutRedis(t *testing.T) {
	// Redis is optional; without it every request is allowed
	allowed, err := CheckAndSetRateLimit(context.Background(), nil, uuid.New(), "create_post", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
