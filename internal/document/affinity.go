package document

import "github.com/petermattis/goid"

// AffinityToken pins document mutations to the goroutine that created
// the token. It is a debug aid: the threading contract holds whether
// or not the check is enabled.
type AffinityToken struct {
	gid int64
}

// NewAffinityToken captures the calling goroutine as the coordination
// goroutine.
func NewAffinityToken() AffinityToken {
	return AffinityToken{gid: goid.Get()}
}

// Held reports whether the caller runs on the captured goroutine.
func (t AffinityToken) Held() bool {
	return goid.Get() == t.gid
}
