// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package chttp (Cooked HTTP) provides the HTTP client with cookies and a
// request timeout, used to crawl and fetch web pages.
package chttp

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefTimeout is the default request timeout.
const DefTimeout = 10 * time.Second

// DefUserAgent is the default User-Agent header value.
const DefUserAgent = "docfilter (+https://github.com/rusq/docfilter)"

type options struct {
	timeout   time.Duration
	userAgent string
	rt        http.RoundTripper
}

// Option configures the client.
type Option func(*options)

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header of the requests.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithTransport sets the underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		if rt != nil {
			o.rt = rt
		}
	}
}

// New returns the HTTP client that keeps the cookies set by the servers
// between the requests.
func New(opts ...Option) *http.Client {
	o := options{
		timeout:   DefTimeout,
		userAgent: DefUserAgent,
		rt:        http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &http.Client{
		Jar:       jar,
		Timeout:   o.timeout,
		Transport: NewTransport(o.rt, o.userAgent),
	}
}

// NewTransport returns the transport that sets the User-Agent header on
// the requests that don't have it.
func NewTransport(rt http.RoundTripper, userAgent string) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &uaTransport{rt: rt, ua: userAgent}
}

type uaTransport struct {
	rt http.RoundTripper
	ua string
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" || t.ua == "" {
		return t.rt.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.ua)
	return t.rt.RoundTrip(req)
}
