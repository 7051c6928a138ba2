// Package command maps raw device tokens to pet actions.
package command

import "strings"

// Token is a raw gesture reported by the button device.
type Token string

const (
	Hold   Token = "HOLD"
	Click  Token = "CLICK"
	Double Token = "DOUBLE"
	Tap    Token = "TAP"
)

// Restart asks for a new egg after the final evolution. It is a local
// control token: Parse never accepts it, so the device cannot send it.
const Restart Token = "RESTART"

// Tokens lists every recognized token in wire order.
var Tokens = []Token{Hold, Click, Double, Tap}

// Action is the mode-aware result of interpreting a token.
type Action int

const (
	Noop Action = iota
	Feed
	Pet
	Hit
	Rescue
)

func (a Action) String() string {
	switch a {
	case Feed:
		return "feed"
	case Pet:
		return "pet"
	case Hit:
		return "hit"
	case Rescue:
		return "rescue"
	default:
		return "noop"
	}
}

// Parse trims surrounding whitespace and reports whether the line is a known
// token. Matching is case-sensitive, like the wire protocol.
func Parse(line string) (Token, bool) {
	tok := Token(strings.TrimSpace(line))
	switch tok {
	case Hold, Click, Double, Tap:
		return tok, true
	}
	return "", false
}

// Interpret maps a raw token to an action given whether the pet is choking.
//
// While choking the controls are repurposed: DOUBLE and TAP count as rescue
// taps, CLICK becomes a hit (which the machine rejects while choking) and
// HOLD does nothing. Unknown tokens are always Noop.
func Interpret(line string, choking bool) Action {
	tok, ok := Parse(line)
	if !ok {
		return Noop
	}
	if choking {
		switch tok {
		case Click:
			return Hit
		case Double, Tap:
			return Rescue
		default:
			return Noop
		}
	}
	switch tok {
	case Hold:
		return Pet
	case Click:
		return Feed
	case Double:
		return Hit
	default:
		return Noop
	}
}
