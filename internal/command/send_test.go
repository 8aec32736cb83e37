package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_splitFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		wantWords []string
		wantRest  string
	}{
		{"", nil, ""},
		{"hello  world", nil, "hello  world"},
		{"--dest music hi", []string{"--dest", "music"}, "hi"},
		{"-d music -t false  hi  there", []string{"-d", "music", "-t", "false"}, "hi  there"},
		{"--dest=music it's", []string{"--dest=music"}, "it's"},
		{`--dest "Off Topic" "quoted" text`, []string{"--dest", "Off Topic"}, `"quoted" text`},
		{`--dest 'Off Topic' x`, []string{"--dest", "Off Topic"}, "x"},
		{`--dest "Bob's Room" x`, []string{"--dest", "Bob's Room"}, "x"},
		{"-- --dest music", nil, "--dest music"},
		{"-x marks the spot", nil, "-x marks the spot"},
		{"--dest", []string{"--dest"}, ""},
	}
	for _, tt := range tests {
		fs, _, _ := newSendFlags()
		words, rest, err := splitFlags(fs, tt.in)
		require.NoError(t, err, "splitFlags(%q)", tt.in)
		assert.Equal(t, tt.wantWords, words, "splitFlags(%q) words", tt.in)
		assert.Equal(t, tt.wantRest, rest, "splitFlags(%q) rest", tt.in)
	}
}

func Test_splitFlags_UnbalancedQuote(t *testing.T) {
	t.Parallel()
	for _, in := range []string{`--dest "open room`, `--dest=O'Brien hi`} {
		fs, _, _ := newSendFlags()
		_, _, err := splitFlags(fs, in)
		assert.Error(t, err, "splitFlags(%q)", in)
	}
}

func Test_parseSend_Defaults(t *testing.T) {
	t.Parallel()
	req, err := parseSend("hello world")
	require.NoError(t, err)
	assert.Equal(t, SendRequest{Destination: "", IncludeTree: true, Message: "hello world"}, req)
}

func Test_parseSend_Flags(t *testing.T) {
	t.Parallel()
	req, err := parseSend(`-t 0 -d "Off Topic" -- --not-a-flag`)
	require.NoError(t, err)
	assert.Equal(t, SendRequest{Destination: "Off Topic", IncludeTree: false, Message: "--not-a-flag"}, req)
}

func Test_parseSend_MessageVerbatim(t *testing.T) {
	t.Parallel()
	req, err := parseSend(`I'm "here"   now \o/`)
	require.NoError(t, err)
	assert.Equal(t, `I'm "here"   now \o/`, req.Message)
}

func Test_parseSend_UsageError(t *testing.T) {
	t.Parallel()
	_, err := parseSend("--tree")
	var uerr *UsageError
	require.True(t, errors.As(err, &uerr), "err = %v", err)
	assert.Equal(t, sendUsage, uerr.Usage)
}
