package proxy

import (
	"net/http"
	"testing"

	"github.com/huginn-proxy/huginn/internal/config"
)

func TestApplyHeaderGroupAddsAndRemoves(t *testing.T) {
	h := http.Header{"X-Drop": []string{"1"}, "X-Keep": []string{"yes"}}
	applyHeaderGroup(h, config.HeaderGroup{
		Add:    []config.CustomHeader{{Name: "X-Added", Value: "v"}},
		Remove: []string{"X-Drop"},
	})
	if h.Get("X-Drop") != "" {
		t.Fatal("expected X-Drop removed")
	}
	if h.Get("X-Added") != "v" {
		t.Fatal("expected X-Added set")
	}
	if h.Get("X-Keep") != "yes" {
		t.Fatal("expected untouched header preserved")
	}
}

func TestApplyHeaderGroupRejectsInvalidValue(t *testing.T) {
	h := http.Header{}
	applyHeaderGroup(h, config.HeaderGroup{
		Add: []config.CustomHeader{{Name: "X-Bad", Value: "line1\r\nline2"}},
	})
	if h.Get("X-Bad") != "" {
		t.Fatal("expected a CRLF-injected value to be rejected")
	}
}

func TestSyntheticResponsesHaveEmptyBody(t *testing.T) {
	for _, resp := range []*http.Response{
		notFoundResponse(), tooManyRequestsResponse(), badGatewayResponse(),
		badRequestResponse(), forbiddenResponse(), serviceUnavailableResponse(), gatewayTimeoutResponse(),
	} {
		if resp.ContentLength != 0 {
			t.Fatalf("status %d: expected empty body, got length %d", resp.StatusCode, resp.ContentLength)
		}
	}
}
