// Package shortcut tokenizes the compact posting and trade notations
// used in journal files, e.g. "10 BTC", "1 ETH @ $100 kraken ;fee day".
package shortcut

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidShortcut marks a shortcut which fails tokenization or
	// the numeric sanity checks.
	ErrInvalidShortcut = errors.New("invalid shortcut")

	// ErrInvalidTrade marks a trade shortcut without exactly two
	// connected token groups.
	ErrInvalidTrade = errors.New("invalid trade")
)

// Connector connects the two legs of a trade shortcut.
type Connector string

const (
	// PerUnit states the credit side as a price per debited unit.
	PerUnit Connector = "@"
	// Total states the credit side as a total price.
	Total Connector = "="
)

// IsConnector reports whether the token is a trade connector.
func IsConnector(token string) bool {
	return token == string(PerUnit) || token == string(Total)
}

var numeric = regexp.MustCompile(`^-?[0-9.,]+$`)

// IsNumeric reports whether a token looks like a quantity. Thousands
// separators are accepted.
func IsNumeric(token string) bool {
	return numeric.MatchString(token)
}

// currencySymbols maps leading currency symbols to trailing currency
// codes. Order matters: the first matching symbol wins, and each token
// is rewritten at most once.
var currencySymbols = []struct {
	Symbol   string
	Currency string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

const commentDelimiter = ";"

// Tokenize splits a raw shortcut into whitespace-delimited tokens and
// a trailing comment. Runs of whitespace collapse, and tokens with a
// leading currency symbol are rewritten to a quantity followed by the
// currency code ("$100" becomes "100 USD").
func Tokenize(raw string) (tokens []string, comment string, err error) {
	body, comment := splitComment(raw)
	for _, token := range strings.Fields(body) {
		tokens = append(tokens, rewriteSymbol(token)...)
	}
	if len(tokens) < 2 {
		return nil, "", fmt.Errorf("%w: %q has fewer than 2 tokens", ErrInvalidShortcut, raw)
	}
	return tokens, comment, nil
}

// splitComment splits off everything after the first unescaped comment
// delimiter. "\;" escapes a literal semicolon in the body.
func splitComment(raw string) (body, comment string) {
	for i := 0; i < len(raw); i++ {
		if raw[i:i+1] != commentDelimiter {
			continue
		}
		if i > 0 && raw[i-1] == '\\' {
			continue
		}
		body, comment = raw[:i], strings.TrimSpace(raw[i+1:])
		return unescape(body), comment
	}
	return unescape(raw), ""
}

func unescape(s string) string {
	return strings.ReplaceAll(s, "\\"+commentDelimiter, commentDelimiter)
}

// rewriteSymbol rewrites a leading-currency-symbol token into separate
// quantity and currency tokens, checking each symbol in table order.
func rewriteSymbol(token string) []string {
	rest, neg := token, ""
	if strings.HasPrefix(rest, "-") {
		rest, neg = rest[1:], "-"
	}
	for _, s := range currencySymbols {
		if !strings.HasPrefix(rest, s.Symbol) {
			continue
		}
		quantity := strings.TrimPrefix(rest, s.Symbol)
		if IsNumeric(quantity) {
			return []string{neg + quantity, s.Currency}
		}
		break
	}
	return []string{token}
}

// sanityCheck validates a token group: exactly one of the first two
// tokens must look numeric.
func sanityCheck(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("%w: group %v has fewer than 2 tokens", ErrInvalidShortcut, tokens)
	}
	var n int
	for _, token := range tokens[:2] {
		if IsNumeric(token) {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: group %v must have exactly one quantity in its first two tokens", ErrInvalidShortcut, tokens)
	}
	return nil
}

// Entry is a parsed single-posting shortcut.
type Entry struct {
	Tokens   []string
	Comment  string
	Shortcut string
}

// ParseEntry parses a shortcut describing a single posting. Connector
// tokens are not allowed here.
func ParseEntry(raw string) (*Entry, error) {
	tokens, comment, err := Tokenize(raw)
	if err != nil {
		return nil, err
	}
	for _, token := range tokens {
		if IsConnector(token) {
			return nil, fmt.Errorf("%w: unexpected connector %q in %q", ErrInvalidShortcut, token, raw)
		}
	}
	if err := sanityCheck(tokens); err != nil {
		return nil, err
	}
	return &Entry{Tokens: tokens, Comment: comment, Shortcut: raw}, nil
}

// Trade is a parsed trade shortcut: a debit group and a credit group
// joined by a connector.
type Trade struct {
	Debit     []string
	Credit    []string
	Connector Connector
	Reversed  bool
	Comment   string
	Shortcut  string
}

// ParseTrade parses a trade shortcut. If the first group's quantity is
// negative, the groups are swapped and the sign stripped: the shortcut
// stated the credit side first.
func ParseTrade(raw string) (*Trade, error) {
	tokens, comment, err := Tokenize(raw)
	if err != nil {
		return nil, err
	}
	groups, connectors := splitGroups(tokens)
	if len(groups) != 2 || len(connectors) != 1 {
		return nil, fmt.Errorf("%w: %q must have exactly two groups joined by a connector", ErrInvalidTrade, raw)
	}
	trade := &Trade{
		Debit:     groups[0],
		Credit:    groups[1],
		Connector: Connector(connectors[0]),
		Comment:   comment,
		Shortcut:  raw,
	}
	if i, ok := negativeQuantity(trade.Debit); ok {
		trade.Debit[i] = strings.TrimPrefix(trade.Debit[i], "-")
		trade.Debit, trade.Credit = trade.Credit, trade.Debit
		trade.Reversed = true
	}
	for _, group := range [][]string{trade.Debit, trade.Credit} {
		if err := sanityCheck(group); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTrade, err)
		}
	}
	return trade, nil
}

// Groups splits a token stream into connector-delimited groups and the
// connectors between them.
func Groups(tokens []string) (groups [][]string, connectors []string) {
	return splitGroups(tokens)
}

// CheckGroup validates a token group: exactly one of its first two
// tokens must look numeric.
func CheckGroup(tokens []string) error {
	return sanityCheck(tokens)
}

func splitGroups(tokens []string) (groups [][]string, connectors []string) {
	var current []string
	for _, token := range tokens {
		if IsConnector(token) {
			connectors = append(connectors, token)
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, token)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups, connectors
}

// negativeQuantity returns the index of the group's numeric token if
// that token carries a leading minus.
func negativeQuantity(group []string) (int, bool) {
	for i, token := range group {
		if IsNumeric(token) {
			return i, strings.HasPrefix(token, "-")
		}
	}
	return 0, false
}
