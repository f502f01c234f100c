// Package watcher provides disk change notification for a single file.
//
// A ChangeWatcher binds one path to a notification Backend and exposes
// idempotent Arm/Disarm operations. While armed, external modifications
// to the file are forwarded to the watcher's change handler on whatever
// goroutine the backend delivers them; the watcher performs no
// re-marshaling.
//
// Subscription failure is a silent degrade: the watcher simply remains
// disarmed and a later Arm or EnsureArmed call retries. File existence
// can be transient during project load, so a missing path must not be
// fatal.
//
// Two backends are provided: FSNotifyBackend (fsnotify, the default)
// and PollBackend (modtime polling, for filesystems without native
// change notification).
package watcher
