// Copyright 2026 The Checkpointd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package domain maps hostnames and IPv4 literals to realms. A Domain
// is either a DNS name or an IP address bound to exactly one realm,
// carrying an explicit allow-list of additional trusted origins.
package domain

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// RFC 1035 limits applied to the IDN-ASCII form of a name.
const (
	rfcNameLimit      = 253
	rfcNameLabelLimit = 63
)

var (
	ipAddressPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	rfcNamePattern   = regexp.MustCompile(`^[a-z0-9][a-z.0-9-]+$`)
)

// Domain binds a canonical host name to a realm.
type Domain struct {
	ID        int64     `json:"id"`
	RealmID   int64     `json:"realm_id"`
	Name      string    `json:"name"`
	Origins   []string  `json:"origins"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasOrigin reports whether host is in the domain's explicit origin
// allow-list. host must already be in canonical ASCII form.
func (d *Domain) HasOrigin(host string) bool {
	for _, o := range d.Origins {
		if o == host {
			return true
		}
	}
	return false
}

// CanonicalName strips all whitespace and lowercases a host name.
// Applied before every validation and lookup.
func CanonicalName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// IsIPAddress reports whether s is shaped like an IPv4 literal.
func IsIPAddress(s string) bool {
	return ipAddressPattern.MatchString(s)
}

// ToASCII transcodes a host name to its IDN ASCII (punycode) form.
func ToASCII(name string) (string, error) {
	return idna.Lookup.ToASCII(name)
}

// ValidName checks RFC shape: an IPv4 literal is always valid; a DNS
// name must fit the total and per-label length limits and its ASCII
// form must match the permitted character set.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	if IsIPAddress(name) {
		return true
	}
	if len(name) > rfcNameLimit {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) > rfcNameLabelLimit {
			return false
		}
	}
	ascii, err := ToASCII(name)
	if err != nil {
		return false
	}
	return rfcNamePattern.MatchString(ascii)
}
