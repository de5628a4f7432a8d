package proxy

import "net/http"

// synthetic builds one of the proxy's own error responses, per spec.md §7's
// error taxonomy: every synthetic response carries an empty body and a
// single status line, matching the teacher's own minimal error handling in
// main.go (which writes bare status lines rather than rendered error
// pages).
func synthetic(status int) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		ContentLength: 0,
		Body:          http.NoBody,
	}
}

func notFoundResponse() *http.Response          { return synthetic(http.StatusNotFound) }
func tooManyRequestsResponse() *http.Response    { return synthetic(http.StatusTooManyRequests) }
func badGatewayResponse() *http.Response         { return synthetic(http.StatusBadGateway) }
func badRequestResponse() *http.Response         { return synthetic(http.StatusBadRequest) }
func forbiddenResponse() *http.Response          { return synthetic(http.StatusForbidden) }
func serviceUnavailableResponse() *http.Response { return synthetic(http.StatusServiceUnavailable) }
func gatewayTimeoutResponse() *http.Response     { return synthetic(http.StatusGatewayTimeout) }
