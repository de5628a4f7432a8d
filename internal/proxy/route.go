package proxy

import (
	"sort"
	"strings"

	"github.com/huginn-proxy/huginn/internal/config"
)

// Router performs longest-prefix path matching over the configured routes,
// per spec.md §4.D step 1 ("Pick a route by longest-prefix match on path;
// no match returns 404").
type Router struct {
	routes []config.Route // sorted longest-prefix-first
}

// NewRouter sorts cfg's routes so the first match encountered is always
// the longest (most specific) matching prefix.
func NewRouter(routes []config.Route) *Router {
	sorted := make([]config.Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Router{routes: sorted}
}

// Match returns the most specific route whose prefix matches path, or
// false if none match.
func (r *Router) Match(path string) (*config.Route, bool) {
	for i := range r.routes {
		if strings.HasPrefix(path, r.routes[i].Prefix) {
			return &r.routes[i], true
		}
	}
	return nil, false
}

// RewritePath applies a route's replace_path rule (backend.rs's Route),
// stripping the matched prefix and substituting the configured
// replacement. An empty or "/" replacement strips the prefix entirely.
func RewritePath(route *config.Route, path string) string {
	if route.ReplacePath == nil {
		return path
	}
	suffix := strings.TrimPrefix(path, route.Prefix)
	replacement := *route.ReplacePath
	if replacement == "" || replacement == "/" {
		if suffix == "" {
			return "/"
		}
		if !strings.HasPrefix(suffix, "/") {
			suffix = "/" + suffix
		}
		return suffix
	}
	return strings.TrimSuffix(replacement, "/") + suffix
}
