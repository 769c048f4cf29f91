package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc123", shortCommit("abc123"))
	assert.Equal(t, "0123456789ab", shortCommit("0123456789abcdef0123"))
	assert.Equal(t, "", shortCommit(""))
}

func TestResolveCommitHashPrefersLdflag(t *testing.T) {
	prev := Commit
	Commit = "deadbeef"
	t.Cleanup(func() { Commit = prev })

	assert.Equal(t, "deadbeef", resolveCommitHash())
}
