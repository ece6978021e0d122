package templating

// defaultModuleTemplate renders a parsed module description into its
// reference page. A template directory can override it by defining its
// own "module.md.tmpl". The dot is a *moddata.Module.
//
// Code spans and fences are produced by the code/fence funcs so this
// literal can stay a raw string.
const defaultModuleTemplate = `{{define "module.md.tmpl"}}# {{.Name}} Module

{{.Description}}
{{- if .Added}}

This module was added in v{{.Added}}.
{{- end}}
{{- if .Configuration}}

## Configuration
{{- range .Configuration}}
{{- if not .Extends}}

### The {{join " and " .Name}} tag

{{.Description}}
{{- if .Attributes}}

| Name | Type | Default Value | Description |
|------|------|---------------|-------------|
{{- range .Attributes}}
| {{code .Name}} | {{.Type}} | {{syntaxCell .Default}} | {{tableCell .Description}} |
{{- end}}
{{- end}}
{{- if .Details}}

{{.Details}}
{{- end}}
{{- if .Example}}

{{fence "xml" .Example}}
{{- end}}
{{- end}}
{{- end}}
{{- end}}
{{- if .Chmodes}}

## Channel Modes
{{- if .Chmodes.Intro}}

{{.Chmodes.Intro}}
{{- end}}

| Character | Name | Parameter | Description |
|-----------|------|-----------|-------------|
{{- range sortByChar .Chmodes.Chars}}
| {{code .Char}} | {{.Name}} | {{syntaxCell .Syntax}} | {{tableCell .Description}} |
{{- end}}
{{- end}}
{{- if .Umodes}}

## User Modes
{{- if .Umodes.Intro}}

{{.Umodes.Intro}}
{{- end}}

| Character | Name | Parameter | Description |
|-----------|------|-----------|-------------|
{{- range sortByChar .Umodes.Chars}}
| {{code .Char}} | {{.Name}} | {{syntaxCell .Syntax}} | {{tableCell .Description}} |
{{- end}}
{{- end}}
{{- if .Extbans}}

## Extended Bans
{{- if .Extbans.Intro}}

{{.Extbans.Intro}}
{{- end}}

| Character | Extban Type | Example Usage | Description |
|-----------|-------------|---------------|-------------|
{{- range sortByChar .Extbans.Chars}}
| {{code .Char}} | {{.Type}} | {{syntaxCell .Syntax}} | {{tableCell .Description}} |
{{- end}}
{{- end}}
{{- if .Snomasks}}

## Server Notice Masks

| Character | Description |
|-----------|-------------|
{{- range sortByChar .Snomasks}}
| {{code .Char}} | {{tableCell .Description}} |
{{- end}}
{{- end}}
{{end}}`
