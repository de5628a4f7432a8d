package proxy

import (
	"testing"

	"github.com/huginn-proxy/huginn/internal/config"
)

func TestRouterMatchesLongestPrefix(t *testing.T) {
	r := NewRouter([]config.Route{
		{Prefix: "/api", Backend: "a"},
		{Prefix: "/api/v2", Backend: "b"},
	})

	route, ok := r.Match("/api/v2/users")
	if !ok || route.Backend != "b" {
		t.Fatalf("expected longest-prefix match to backend b, got %+v ok=%v", route, ok)
	}
}

func TestRouterFallsBackToShorterPrefix(t *testing.T) {
	r := NewRouter([]config.Route{
		{Prefix: "/api", Backend: "a"},
		{Prefix: "/api/v2", Backend: "b"},
	})

	route, ok := r.Match("/api/v1/users")
	if !ok || route.Backend != "a" {
		t.Fatalf("expected fallback to backend a, got %+v ok=%v", route, ok)
	}
}

func TestRouterNoMatch(t *testing.T) {
	r := NewRouter([]config.Route{{Prefix: "/api", Backend: "a"}})
	if _, ok := r.Match("/other"); ok {
		t.Fatal("expected no match")
	}
}

func TestRewritePathStripsPrefix(t *testing.T) {
	empty := ""
	route := &config.Route{Prefix: "/api", ReplacePath: &empty}
	if got := RewritePath(route, "/api/users"); got != "/users" {
		t.Fatalf("got %q", got)
	}
}

func TestRewritePathSubstitutesPrefix(t *testing.T) {
	v1 := "/v1"
	route := &config.Route{Prefix: "/api", ReplacePath: &v1}
	if got := RewritePath(route, "/api/users"); got != "/v1/users" {
		t.Fatalf("got %q", got)
	}
}

func TestRewritePathNoRuleLeavesPathUnchanged(t *testing.T) {
	route := &config.Route{Prefix: "/api"}
	if got := RewritePath(route, "/api/users"); got != "/api/users" {
		t.Fatalf("got %q", got)
	}
}

func TestRewritePathRootReplacementYieldsSlash(t *testing.T) {
	empty := ""
	route := &config.Route{Prefix: "/api", ReplacePath: &empty}
	if got := RewritePath(route, "/api"); got != "/" {
		t.Fatalf("got %q", got)
	}
}
