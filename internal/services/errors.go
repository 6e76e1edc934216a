// Package services defines the business logic for conversation rooms,
// messages, sending, opt-out, push notifications, and scheduled group
// messages. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrInvalidRoomID indicates a room id that does not parse into a
	// medium and an identifier. List operations soft-fail to an empty
	// result instead; mutating operations return this error.
	ErrInvalidRoomID = errors.New("invalid room ID")

	// ErrCommunicationNotFound indicates that the referenced communication
	// record does not exist.
	ErrCommunicationNotFound = errors.New("communication not found")

	// ErrEmptyContent is returned when a send request carries no content.
	ErrEmptyContent = errors.New("content is empty")

	// ErrUnsupportedMedium is returned when a send request targets a medium
	// with no transport (Phone call notes and Chat records are read-only).
	ErrUnsupportedMedium = errors.New("medium has no send transport")

	// ErrInvalidSubscription is returned when a push subscription payload
	// is missing its endpoint or keys.
	ErrInvalidSubscription = errors.New("invalid push subscription")

	// ErrInvalidSignature indicates a webhook payload whose provider
	// signature did not verify; nothing is persisted in that case.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
