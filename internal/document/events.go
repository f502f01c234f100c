package document

import "sync"

// OpenedHandler observes open transitions. isActiveContext reports
// whether the open happened in the user's active editing context.
type OpenedHandler func(isActiveContext bool)

// ClosingHandler observes the start of close transitions, before the
// buffer detaches.
type ClosingHandler func(isActiveContext bool)

// UpdatedOnDiskHandler observes external disk modifications seen while
// the document is closed.
type UpdatedOnDiskHandler func()

// eventHub holds the document's observer lists. Registration and
// emission are mutex-guarded because UpdatedOnDisk arrives on the
// watcher goroutine while registrations happen on the coordination
// goroutine. Handlers fire in registration order, outside the lock.
type eventHub struct {
	mu            sync.Mutex
	nextID        int
	opened        []entry[OpenedHandler]
	closing       []entry[ClosingHandler]
	updatedOnDisk []entry[UpdatedOnDiskHandler]
}

type entry[H any] struct {
	id int
	fn H
}

func register[H any](hub *eventHub, list *[]entry[H], h H) func() {
	hub.mu.Lock()
	hub.nextID++
	id := hub.nextID
	*list = append(*list, entry[H]{id: id, fn: h})
	hub.mu.Unlock()

	return func() {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		for i, e := range *list {
			if e.id == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

func snapshot[H any](hub *eventHub, list *[]entry[H]) []entry[H] {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return append([]entry[H](nil), *list...)
}

func (h *eventHub) onOpened(fn OpenedHandler) func() {
	return register(h, &h.opened, fn)
}

func (h *eventHub) onClosing(fn ClosingHandler) func() {
	return register(h, &h.closing, fn)
}

func (h *eventHub) onUpdatedOnDisk(fn UpdatedOnDiskHandler) func() {
	return register(h, &h.updatedOnDisk, fn)
}

func (h *eventHub) emitOpened(isActiveContext bool) {
	for _, e := range snapshot(h, &h.opened) {
		e.fn(isActiveContext)
	}
}

func (h *eventHub) emitClosing(isActiveContext bool) {
	for _, e := range snapshot(h, &h.closing) {
		e.fn(isActiveContext)
	}
}

func (h *eventHub) emitUpdatedOnDisk() {
	for _, e := range snapshot(h, &h.updatedOnDisk) {
		e.fn()
	}
}

func (h *eventHub) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = nil
	h.closing = nil
	h.updatedOnDisk = nil
}
