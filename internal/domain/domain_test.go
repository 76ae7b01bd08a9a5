package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "example.org", CanonicalName("Example.ORG"))
	assert.Equal(t, "example.org", CanonicalName("  example.org\n"))
	assert.Equal(t, "exam.ple.org", CanonicalName("Exam .ple.org"))
	assert.Equal(t, "", CanonicalName(" \t\r\n"))
}

func TestIsIPAddress(t *testing.T) {
	assert.True(t, IsIPAddress("192.168.0.1"))
	assert.True(t, IsIPAddress("10.0.0.1"))
	assert.False(t, IsIPAddress("example.org"))
	assert.False(t, IsIPAddress("192.168.0"))
	assert.False(t, IsIPAddress("::1"))
}

// TestPurpose: Validates RFC shape checks on domain names.
// Scope: Unit Test
// Expected: Plain names and IPv4 literals pass; names over 253 bytes,
// labels over 63 bytes, and malformed characters fail.
// Test Case ID: DOM-01
func TestValidName(t *testing.T) {
	assert.True(t, ValidName("example.org"))
	assert.True(t, ValidName("sub.acme.com"))
	assert.True(t, ValidName("a-hyphen.example.org"))
	assert.True(t, ValidName("192.168.0.1"))
	assert.True(t, ValidName("xn--bcher-kva.example"))

	assert.False(t, ValidName(""))
	assert.False(t, ValidName("under_score.example.org"))
	assert.False(t, ValidName("-leading.example.org"))

	// Total length above 253.
	long := strings.Repeat("a.", 127) + "example.org"
	assert.False(t, ValidName(long))

	// One label above 63.
	assert.False(t, ValidName(strings.Repeat("a", 64)+".example.org"))
	assert.True(t, ValidName(strings.Repeat("a", 63)+".example.org"))
}

func TestDomain_HasOrigin(t *testing.T) {
	d := &Domain{Origins: []string{"a.example.org", "b.example.org"}}
	assert.True(t, d.HasOrigin("a.example.org"))
	assert.False(t, d.HasOrigin("c.example.org"))
	assert.False(t, (&Domain{}).HasOrigin("a.example.org"))
}
