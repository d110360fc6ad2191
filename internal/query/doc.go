// Package query implements the search query language front end.
//
// The grammar follows common web-search syntax: clauses combine
// implicitly by AND, explicitly by OR, negate with NOT or a leading
// dash, and group with parentheses. A clause is a bare term, a quoted
// phrase, or field:value with the fields tag, ext, type, name, content,
// size and mtime. Size and mtime accept comparators (>, <, >=, <=) and
// lo..hi ranges; #x is shorthand for tag:x.
//
// The parser produces an AST for the evaluator and reports malformed
// input as *domain.ParseError with the byte offset and offending token,
// or *domain.UnknownFieldError for unrecognized field names.
package query
