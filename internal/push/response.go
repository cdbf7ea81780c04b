package push

import "fmt"

type ResponseKind int

const (
	KindOther ResponseKind = iota
	KindContinuation
	KindExists
	KindExpunge
	KindFetch
	KindVanished
)

func (k ResponseKind) String() string {
	switch k {
	case KindContinuation:
		return "+"
	case KindExists:
		return "EXISTS"
	case KindExpunge:
		return "EXPUNGE"
	case KindFetch:
		return "FETCH"
	case KindVanished:
		return "VANISHED"
	default:
		return "OTHER"
	}
}

// Response is a single server response observed while a command runs.
type Response struct {
	Tag    string
	Kind   ResponseKind
	Number uint32
	Text   string
}

func (r Response) Tagged() bool {
	return r.Tag != ""
}

// Interesting reports whether the response describes a mailbox change worth a
// resync: a new message count, an expunge, a fetch update or a vanished set.
func (r Response) Interesting() bool {
	if r.Tagged() {
		return false
	}
	switch r.Kind {
	case KindExists, KindExpunge, KindFetch, KindVanished:
		return true
	}
	return false
}

func (r Response) String() string {
	tag := r.Tag
	if tag == "" {
		tag = "*"
	}
	if r.Kind == KindContinuation {
		return "+ " + r.Text
	}
	if r.Kind == KindVanished {
		return fmt.Sprintf("%s VANISHED %s", tag, r.Text)
	}
	return fmt.Sprintf("%s %d %s %s", tag, r.Number, r.Kind, r.Text)
}
