// Package forum owns the thread and post lifecycle: categories, thread
// moderation flags, replies and the view counter.
package forum

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/shared"
)

// Category groups threads on the board.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	Icon        string
	SortOrder   int
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
}

// Thread carries two independent moderation flags. Pinned and locked vary
// freely, giving four simultaneous states rather than a linear chain.
type Thread struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	AuthorID   *uuid.UUID
	Title      string
	Content    string
	Pinned     bool
	Locked     bool
	Views      int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Post is one reply in a thread.
type Post struct {
	ID         uuid.UUID
	ThreadID   uuid.UUID
	AuthorID   *uuid.UUID
	Content    string
	FlameStyle bool
	CreatedAt  time.Time
}

// Replies may attach up to this many image markers.
const maxPostImages = 5

// composeContent joins reply text with [IMG]url[/IMG] markers the way the
// board has always stored them. The result must be non-empty; the markers
// stay opaque to this core beyond that check.
func composeContent(text string, imageURLs []string) (string, error) {
	text = strings.TrimSpace(text)
	if len(imageURLs) > maxPostImages {
		return "", &shared.ValidationError{Field: "images", Reason: fmt.Sprintf("at most %d images", maxPostImages)}
	}
	var markers []string
	for _, url := range imageURLs {
		url = strings.TrimSpace(url)
		if url == "" {
			return "", &shared.ValidationError{Field: "images", Reason: "empty image url"}
		}
		markers = append(markers, "[IMG]"+url+"[/IMG]")
	}
	if text == "" && len(markers) == 0 {
		return "", &shared.ValidationError{Field: "content", Reason: "required"}
	}
	if len(markers) == 0 {
		return text, nil
	}
	if text == "" {
		return strings.Join(markers, "\n"), nil
	}
	return text + "\n\n" + strings.Join(markers, "\n"), nil
}
