package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Tech Meetup", "tech-meetup"},
		{"  Go & Rust: 2025 Edition!! ", "go-rust-2025-edition"},
		{"already-a-slug", "already-a-slug"},
		{"Café Night", "caf-night"},
		{"---", "event"},
		{"", "event"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestAllocateSlug(t *testing.T) {
	ctx := context.Background()
	taken := map[string]bool{"demo-day": true, "demo-day-1": true}

	slug, err := AllocateSlug(ctx, "Demo Day", func(s string) error {
		if taken[s] {
			return repository.ErrSlugTaken
		}
		taken[s] = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "demo-day-2", slug)
}

func TestAllocateSlug_StopsOnOtherErrors(t *testing.T) {
	boom := errors.New("disk full")
	attempts := 0
	_, err := AllocateSlug(context.Background(), "Demo", func(string) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestAllocateSlug_Exhausted(t *testing.T) {
	_, err := AllocateSlug(context.Background(), "Demo", func(string) error {
		return repository.ErrSlugTaken
	})
	assert.ErrorIs(t, err, ErrSlugExhausted)
}

func TestAllocateSlug_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AllocateSlug(ctx, "Demo", func(string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
