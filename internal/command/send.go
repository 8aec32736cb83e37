package command

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/jamesprial/mumblebot/internal/resolve"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"
)

const sendUsage = CmdSend + " [--dest <value>] [--tree <true|false>] <message>"

// UsageError reports a malformed command line.
type UsageError struct {
	Reason string
	Usage  string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// SendRequest is a parsed mumblesend command line.
type SendRequest struct {
	Destination string
	IncludeTree bool
	Message     string
}

func newSendFlags() (fs *pflag.FlagSet, dest, tree *string) {
	fs = pflag.NewFlagSet(CmdSend, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	dest = fs.StringP("dest", "d", "", "channel or user to message (default root channel)")
	// A string flag so "--tree false" works as well as "--tree=false".
	tree = fs.StringP("tree", "t", strconv.FormatBool(resolve.DefaultIncludeTree), "also message subchannels")
	return fs, dest, tree
}

// parseSend parses "[--dest <value>] [--tree <true|false>] <message>".
// Only the leading flag words are tokenized; the message is the remainder
// of args exactly as typed. "--" ends the flags explicitly.
func parseSend(args string) (SendRequest, error) {
	fs, dest, tree := newSendFlags()

	words, msg, err := splitFlags(fs, args)
	if err != nil {
		return SendRequest{}, &UsageError{Reason: err.Error(), Usage: sendUsage}
	}
	if err := fs.Parse(words); err != nil {
		return SendRequest{}, &UsageError{Reason: err.Error() + ".", Usage: sendUsage}
	}
	includeTree, err := strconv.ParseBool(*tree)
	if err != nil {
		return SendRequest{}, &UsageError{Reason: "--tree must be true or false.", Usage: sendUsage}
	}
	if strings.TrimSpace(msg) == "" {
		return SendRequest{}, &UsageError{Reason: "A message is required.", Usage: sendUsage}
	}

	return SendRequest{Destination: *dest, IncludeTree: includeTree, Message: msg}, nil
}

type flagError string

func (e flagError) Error() string { return string(e) }

// splitFlags peels flag words off the front of args and returns them
// unquoted, followed by the untouched remainder. A word is a flag when it
// starts with "--" or names a registered shorthand ("-d", "-t"); a flag
// without "=" also takes the following word as its value.
func splitFlags(fs *pflag.FlagSet, args string) (words []string, rest string, err error) {
	rest = trimLeftSpace(args)
	for rest != "" {
		raw, after := nextWord(rest)
		if raw == "--" {
			return words, trimLeftSpace(after), nil
		}
		if !isFlagWord(fs, raw) {
			break
		}
		word, err := unquote(raw)
		if err != nil {
			return nil, "", err
		}
		words = append(words, word)
		rest = trimLeftSpace(after)

		if strings.Contains(word, "=") || rest == "" {
			continue
		}
		raw, after = nextWord(rest)
		value, err := unquote(raw)
		if err != nil {
			return nil, "", err
		}
		words = append(words, value)
		rest = trimLeftSpace(after)
	}
	return words, rest, nil
}

func isFlagWord(fs *pflag.FlagSet, raw string) bool {
	if strings.HasPrefix(raw, "--") {
		return true
	}
	if len(raw) < 2 || raw[0] != '-' {
		return false
	}
	return fs.ShorthandLookup(raw[1:2]) != nil
}

// nextWord returns the leading word of s, quotes included, and what follows
// it. Whitespace inside single or double quotes does not end the word.
func nextWord(s string) (word, after string) {
	var quote rune
	escaped := false
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case unicode.IsSpace(r):
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// unquote removes shell quoting from a single flag word.
func unquote(raw string) (string, error) {
	p := shellwords.NewParser()
	parts, err := p.Parse(raw)
	if err != nil {
		return "", flagError("unbalanced quotes: " + raw + ".")
	}
	if p.Position >= 0 {
		return "", flagError("unexpected character in flag: " + raw + ".")
	}
	return strings.Join(parts, " "), nil
}

func trimLeftSpace(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}
