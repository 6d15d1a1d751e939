// Package subscription holds the subscription registries of eventflow.
//
// A Subscription pairs a source type and an optional event-args type with a
// handler. Global subscriptions live in a GlobalCollection for as long as
// the caller keeps them. Scoped subscriptions are declared once as service
// bindings on a ScopedService and materialized per scope by resolving each
// binding's service through a Resolver.
//
// Publish delivers one event to a set of subscriptions. Every handler runs,
// even when an earlier one fails; failures are collected and returned as a
// single *PublishAggregateError.
package subscription
