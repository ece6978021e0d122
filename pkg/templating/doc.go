/*
Package templating provides the documentation template engine.

It renders two kinds of input: named page templates loaded from a template
directory (with a built-in fallback for module reference pages), and raw
template strings, which is how documentation pages containing template
directives are processed. The function map covers the needs of reference
pages: stable sorting of mode and extban tables by character, placeholder
rendering for parameterless entries, and cross-reference link generation.

The engine supports hot-reloading of the template directory, enabling
template updates on a running docs server without a restart.
*/
package templating
