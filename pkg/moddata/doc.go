/*
Package moddata loads and aggregates IRC server module descriptions.

Each server module is described by a single YAML file that documents the
configuration tags, channel modes, user modes, extended bans, and server
notice masks the module provides. This package parses those files into
typed records and builds the cross-module aggregate views (all extbans,
all channel modes, all tag extensions, and so on) that the documentation
templates iterate over.

Parsed files are cached by path, so repeated loads during a build or a
long-running server session are cheap.
*/
package moddata
