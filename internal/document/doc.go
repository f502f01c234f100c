// Package document maintains the reconciled state of one logical
// source file across two competing authorities: an in-memory editable
// buffer, present only while the document is open in an editor, and
// the on-disk file, authoritative while closed.
//
// While a document is closed its change watcher is armed and external
// disk modifications surface as UpdatedOnDisk events. Opening the
// document disarms the watcher (the buffer becomes authoritative) and
// binds a fresh revision tracker to the buffer; closing re-arms the
// watcher. Every text read goes through a guarded source that arms the
// watcher before reading, so a read can never race ahead of watcher
// subscription.
//
// Threading contract: mutating operations (ProcessOpen, ProcessClose,
// UpdateText, Dispose) are confined to one coordination goroutine and
// the document performs no internal locking for its state. Callers
// must marshal onto that goroutine; WithAffinityToken enables a debug
// check. Reads through TextSource are safe from any goroutine, and
// UpdatedOnDisk is delivered on the watcher's goroutine without
// re-marshaling.
//
// Contract violations (opening an open document, closing a closed one,
// double dispose) panic: they indicate caller bugs that must not be
// masked as recoverable errors.
package document
