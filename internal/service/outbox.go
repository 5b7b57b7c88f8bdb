package service

import "github.com/Sidbot007/StudentBidz/internal/model"

// outbox collects side effects inside a store transaction. They are
// dispatched only after the transaction commits.
type outbox struct {
	notes  []model.Notification
	events []model.Event
}

func (o *outbox) notify(n model.Notification) {
	o.notes = append(o.notes, n)
}

func (o *outbox) publish(ev model.Event) {
	o.events = append(o.events, ev)
}

// reset drops effects staged by an earlier attempt of a replayed transaction.
func (o *outbox) reset() {
	o.notes = nil
	o.events = nil
}
