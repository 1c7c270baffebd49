// Package watch maps filesystem changes to named graph invocations.
//
// Each Watch call registers a target with one or more globs. A change
// matching a target schedules that target alone; bursts of changes are
// debounced per target, and every firing starts a fresh, independent
// invocation.
package watch
