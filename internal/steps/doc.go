// Package steps implements the named pipeline steps and wires them into a
// taskgraph.Graph.
//
// Every leaf step returns a terminal taskgraph.Result. A missing source path
// is CompletedEmpty; a processing function error is logged and carried as a
// warning on a Completed result; only filesystem write failures fail a step.
//
// css:svg and css:sprites write the metastore.Store; css:stylus reads it. The
// css and css:*:update composites order them so the stylesheet step always
// sees the metadata of the same invocation.
package steps
