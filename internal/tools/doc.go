// Package tools implements the tool dispatcher and the four image
// operation handlers: generate, edit, remove_background and host.
//
// A Dispatcher decodes each call's JSON arguments strictly into a per-tool
// struct, checks that the service the tool needs is configured, resolves
// any referenced resource in the registry, and only then calls the
// external service. A successful call registers exactly one new resource
// whose ParentID names the resource it was derived from, so handlers
// compose into edit chains:
//
//	generate -> edit -> remove_background -> host
//
// Failures are classified with Kind and converted into a structured
// Failure with Describe.
package tools
