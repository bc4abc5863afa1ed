package protocol

import (
	"bytes"
	"strings"
)

// Command tokens.
const (
	TokenStatus      = "Sup?"
	TokenOpen        = "OPEN!"
	TokenSubscribe   = "subscribe"
	TokenUnsubscribe = "unsubscribe"
)

// Replies.
const (
	ReplyNothing        = "Nothing.\n"
	ReplyRinging        = "RING!\n"
	ReplyAcknowledged   = "Acknowledged. Buzzing it open.\n"
	ReplyAlreadyOpened  = "Already opened recently.\n"
	ReplyInternalError  = "Internal error.\n"
	ReplyTooMany        = "Too many subscribers.\n"
	ReplyUnsubscribed   = "Unsubscribed.\n"
	ReplyBadRequest     = "Huh?\n"
	replySubscribedTmpl = "Subscribed for %d seconds.\n"
)

// Kind identifies a parsed command.
type Kind int

const (
	// KindUnknown is anything that is not a recognized token.
	KindUnknown Kind = iota
	// KindStatus asks whether the ringer is ringing.
	KindStatus
	// KindOpen asks to buzz the gate open.
	KindOpen
	// KindSubscribe asks for ring notifications.
	KindSubscribe
	// KindUnsubscribe cancels ring notifications.
	KindUnsubscribe
)

// String returns the log name of the kind.
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindOpen:
		return "open"
	case KindSubscribe:
		return "subscribe"
	case KindUnsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// Command is a tokenized datagram.
type Command struct {
	// Kind is the recognized command.
	Kind Kind
	// Token is the first word as received.
	Token string
	// Args are the remaining words. No command interprets them.
	Args []string
}

// Parse tokenizes a datagram payload. The payload ends at the first NUL,
// since legacy clients send C strings.
func Parse(payload []byte) Command {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}

	fields := strings.Fields(string(payload))
	if len(fields) == 0 {
		return Command{Kind: KindUnknown}
	}

	cmd := Command{
		Token: fields[0],
		Args:  fields[1:],
	}

	switch cmd.Token {
	case TokenStatus:
		cmd.Kind = KindStatus
	case TokenOpen:
		cmd.Kind = KindOpen
	case TokenSubscribe:
		cmd.Kind = KindSubscribe
	case TokenUnsubscribe:
		cmd.Kind = KindUnsubscribe
	default:
		cmd.Kind = KindUnknown
	}

	return cmd
}
