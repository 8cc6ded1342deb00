package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlags(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()

	fs := flag.NewFlagSet("blogscout", flag.ContinueOnError)
	fs.Int("concurrency", 5, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

// TestFlagProvided_DefaultDoesNotCount verifies an untouched flag leaves
// config-file values alone
func TestFlagProvided_DefaultDoesNotCount(t *testing.T) {
	fs := newTestFlags(t)
	assert.False(t, flagProvided(fs, "concurrency", "BLOGSCOUT_CONCURRENCY"))
}

// TestFlagProvided_ExplicitFlagCounts verifies a flag passed on the command
// line wins even at its default value
func TestFlagProvided_ExplicitFlagCounts(t *testing.T) {
	fs := newTestFlags(t, "-concurrency", "5")
	assert.True(t, flagProvided(fs, "concurrency", "BLOGSCOUT_CONCURRENCY"))
}

// TestFlagProvided_EnvCounts verifies an environment variable counts as an
// explicit setting
func TestFlagProvided_EnvCounts(t *testing.T) {
	t.Setenv("BLOGSCOUT_CONCURRENCY", "8")
	fs := newTestFlags(t)
	assert.True(t, flagProvided(fs, "concurrency", "BLOGSCOUT_CONCURRENCY"))
}

// TestParseDate covers the date flag format
func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-17")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.March, d.Month())

	d, err = parseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseDate("17/03/2024")
	assert.Error(t, err)
}
