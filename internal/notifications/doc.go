// Package notifications delivers pipeline events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, and
// per-event toggles in the notifications config section suppress individual
// event families. Callers depend only on the Service interface.
package notifications
