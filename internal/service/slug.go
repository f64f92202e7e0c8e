package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
)

const (
	defaultSlug     = "event"
	maxSlugAttempts = 1000
)

// ErrSlugExhausted is returned when no free suffix is found within maxSlugAttempts
var ErrSlugExhausted = errors.New("no free slug found")

// Slugify lower-cases the title, collapses every run of characters outside
// [a-z0-9] into one hyphen and trims hyphens at both ends.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingHyphen := false

	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	if b.Len() == 0 {
		return defaultSlug
	}
	return b.String()
}

// slugCandidate returns base for attempt 0 and base-N afterwards
func slugCandidate(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt)
}

// AllocateSlug derives a slug from title and hands successive candidates to
// insert until one is accepted. insert must be the atomic write itself and
// fail with repository.ErrSlugTaken on a unique-constraint collision.
func AllocateSlug(ctx context.Context, title string, insert func(slug string) error) (string, error) {
	base := Slugify(title)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := slugCandidate(base, attempt)
		err := insert(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, repository.ErrSlugTaken) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w for %q after %d attempts", ErrSlugExhausted, base, maxSlugAttempts)
}
