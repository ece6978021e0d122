/*
Package site implements the documentation build pipeline.

A build walks the docs source tree, loads every module description file
for the configured docs version, computes the aggregate context that pages
iterate over (all channel modes, user modes, extended bans, server notice
masks, and configuration tag extensions), then renders each source into
the output tree: markdown pages are run through the template engine,
module YAML files are rendered with the module page template, and
everything else is copied through as a static asset. Rendered output is
written atomically and, when a search database is attached, indexed in the
same build.
*/
package site
