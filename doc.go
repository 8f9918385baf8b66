// Package reactive connects a state Manager to the components that render
// it.
//
// A Hub owns one state.Manager. Components change the state only by
// dispatching named mutations; every mutation unlocks the manager, writes
// and locks it again, which publishes one event per change. The hub routes
// those events by exact name to the watchers components declared:
//
//	hub, _ := reactive.New(
//		reactive.WithMutations(reactive.Mutations{"rename": rename}),
//		reactive.WithInitialState(tree),
//	)
//	_ = hub.RegisterComponent(&titleView{})
//	_ = hub.Dispatch("rename", "New title")
//
// Watchers may carry a guard expression (When) evaluated with expr by
// default, or with cel-go or goja (js_eval build tag) when configured.
// Published events can also be forwarded to activity hooks.
package reactive
