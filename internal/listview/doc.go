// Package listview drives the paginated fleet tables.
//
// An Orchestrator turns poll ticks into a View for the active tab. Miners are
// projected into fleet.MinerRow values on the fly; containers, cabinets and
// the "all" tab expose devices or cabinets directly.
//
// CommentActions connects the comment affordances of the tables to a
// CommentClient, a PermissionChecker and a Notifier.
package listview
