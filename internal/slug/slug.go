// Package slug derives URL slugs from titles and resolves them to
// namespace-unique values against the media library.
package slug

import (
	"context"
	"fmt"
	"strings"
)

// MaxLen caps generated slugs to the column limit.
const MaxLen = 255

// Derive produces the client-side candidate slug for a title: lowercase,
// runs of non-alphanumeric characters collapsed to a single hyphen, leading
// and trailing hyphens stripped.
func Derive(title string) string {
	out := make([]rune, 0, len(title))
	for _, ch := range strings.ToLower(title) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		default:
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	derived := strings.Trim(string(out), "-")
	if len(derived) > MaxLen {
		derived = strings.TrimRight(derived[:MaxLen], "-")
	}
	return derived
}

// Index reports slug occupancy within a namespace.
type Index interface {
	SlugExists(ctx context.Context, namespace, slug string) (bool, error)
}

// Resolver finds a namespace-unique slug for a candidate title. The check is
// pure: resolving never reserves anything, so resolving the same inputs
// twice returns the same slug.
type Resolver struct {
	index Index
}

func NewResolver(index Index) *Resolver {
	return &Resolver{index: index}
}

// Resolve derives a slug from title and, if it collides with the library or
// with inUse, appends the lowest free numeric suffix (-2, -3, ...).
func (r *Resolver) Resolve(ctx context.Context, title, namespace string, inUse []string) (string, error) {
	base := Derive(title)
	if base == "" {
		base = "untitled"
	}

	used := make(map[string]struct{}, len(inUse))
	for _, s := range inUse {
		used[s] = struct{}{}
	}

	candidate := base
	for n := 2; ; n++ {
		taken := false
		if _, ok := used[candidate]; ok {
			taken = true
		} else {
			exists, err := r.index.SlugExists(ctx, namespace, candidate)
			if err != nil {
				return "", fmt.Errorf("resolve slug %q: %w", candidate, err)
			}
			taken = exists
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
