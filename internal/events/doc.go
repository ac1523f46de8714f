// Package events provides types and interfaces for an event-driven architecture.
//
// The mutation coordinator emits an EntityCreated event after every
// successful insert. Handlers registered on an EventEmitter react to those
// events (audit logging, metrics) without the coordinator knowing about them.
//
// The primary components are:
//   - EntityCreated: describes one newly stored author or book
//   - EventHandler: interface for components that can handle events
//   - EventEmitter: interface for components that can emit events
package events
