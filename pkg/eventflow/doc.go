// Package eventflow routes events raised by domain objects through
// configurable pipelines to subscribers.
//
// An application declares, per source type and event field, a pipeline of
// stages: filter, projection, queueing, routing, and publication. Events
// are raised with Engine.Raise or captured from Handlers fields of sources
// attached to a Scope. Publication delivers to global subscriptions, which
// live as long as the engine, and to scoped subscriptions, whose services
// are resolved once per Scope.
//
// # Quick Start
//
//	engine := eventflow.New(eventflow.WithQueues("audit"))
//	engine.ConfigurePipelines(func(b *eventflow.PipelinesBuilder) {
//	    eventflow.Hook[*Order, TotalChanged](b, "TotalChanged",
//	        func(o *Order) *eventflow.Handlers[TotalChanged] { return &o.TotalChanged }).
//	        IsPiped().
//	        ThenIsFilteredBy(`args.total > 100`).
//	        ThenIsQueuedTo("audit").
//	        ThenIsPublishedToGlobalSubscriptions()
//	})
//	eventflow.SubscribeGlobally(engine, func(ctx context.Context, o *Order, e TotalChanged) error {
//	    return audit.Write(ctx, o.ID, e.Total)
//	})
//
//	scope, _ := engine.NewScope(nil)
//	defer scope.Close()
//	engine.Attach(order, scope)
//	order.TotalChanged.Raise(ctx, TotalChanged{Total: 250})
//	engine.ProcessQueuedEvents(ctx, scope, "audit")
//
// # Building
//
// Configuration is recorded by ConfigurePipelines and
// ConfigureSubscriptions and built exactly once, on first use. A failed
// build is sticky. After the build, configuration calls return a
// *ConfigurationError wrapping ErrAlreadyBuilt.
//
// # Errors
//
// Publication runs every matching handler and reports failures together
// as a *subscription.PublishAggregateError; handler panics become
// *subscription.PanicError entries. When a failure store is configured,
// each failure is also recorded there.
package eventflow
