package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
)

func TestNewContainer_MemoryStore(t *testing.T) {
	c, err := NewContainer(context.Background(), &ContainerConfig{})
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	assert.Nil(t, c.ViewFlushWorker)
	assert.NotNil(t, c.EventHandler)
	assert.NotNil(t, c.RegistrationHandler)
	assert.NotNil(t, c.ProfileHandler)
	assert.NotNil(t, c.HealthHandler)

	profile, err := c.ProfileService.CreateProfile(context.Background(), "org-1", &dto.CreateProfileRequest{DisplayName: "Org"})
	require.NoError(t, err)
	assert.Equal(t, "org-1", profile.UserID)

	c.Start(context.Background())
}

func TestNewContainer_BufferedViewsNeedRedis(t *testing.T) {
	_, err := NewContainer(context.Background(), &ContainerConfig{BufferViews: true})
	assert.Error(t, err)
}
