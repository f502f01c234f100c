package buffer

// Snapshot provides a read-only view of a buffer at a specific point
// in time. It will not change even if the original buffer is modified.
type Snapshot struct {
	text        string
	revision    RevisionID
	fingerprint uint64
}

// Text returns the full snapshot content.
func (s *Snapshot) Text() string {
	return s.text
}

// Len returns the byte length of the snapshot.
func (s *Snapshot) Len() int {
	return len(s.text)
}

// Revision returns the revision ID of this snapshot.
func (s *Snapshot) Revision() RevisionID {
	return s.revision
}

// Fingerprint returns the content fingerprint of this snapshot.
func (s *Snapshot) Fingerprint() uint64 {
	return s.fingerprint
}

// IsEmpty returns true if the snapshot is empty.
func (s *Snapshot) IsEmpty() bool {
	return len(s.text) == 0
}
