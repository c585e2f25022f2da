// Package ui is the uniform view over a renderable UI tree that every locate
// step works against. Inspecting a node never changes the page; only Click,
// ScrollIntoView and Tree.ScrollToBottom do.
package ui

import (
	"context"
	"errors"
)

var (
	// ErrTreeUnavailable means the tree could not be enumerated at all
	// (page closed, root detached).
	ErrTreeUnavailable = errors.New("ui tree unavailable")
	// ErrStaleNode means the node came from an earlier snapshot or has left
	// the document since. Take a new snapshot before acting on it again.
	ErrStaleNode = errors.New("node belongs to an outdated snapshot")
	// ErrNotInteractable means the node exists but has no rendered box to
	// scroll to or click.
	ErrNotInteractable = errors.New("node is not rendered")
)

// Node is a transient snapshot of one element. Nodes must not be kept across
// polling rounds.
type Node interface {
	// Text is the full text content with whitespace collapsed.
	Text() string
	// OwnText is the text of the node's direct text children only.
	OwnText() string
	Tag() string
	Attr(name string) string
	// Visible reports whether the node would be rendered to the user, not
	// merely present in the tree.
	Visible() bool
	Clickable() bool
	Size() (width, height float64)
	ChildCount() int
	Parent() Node
	Children() []Node
	NextSibling() Node

	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
}

// Tree is the capability object through which components read and mutate
// the live UI.
type Tree interface {
	// Snapshot returns all descendants of the root in document order.
	Snapshot(ctx context.Context) ([]Node, error)
	ScrollToBottom(ctx context.Context) error
	// WaitStable returns once rendering has settled, or immediately when the
	// platform cannot observe render completion.
	WaitStable(ctx context.Context) error
}
