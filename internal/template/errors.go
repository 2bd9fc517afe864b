package template

import "errors"

var (
	// ErrTemplateSyntax marks a malformed directive detected at parse
	// time: unclosed {{ or {%, a for without its end_for, an insert
	// missing one of its arguments.
	ErrTemplateSyntax = errors.New("invalid template syntax")

	// ErrUnresolvedName marks a reference to a name that is absent
	// from the whole context stack, or bound to a value that cannot be
	// used where it is referenced. Never defaulted: a missing name
	// would silently corrupt generated network or scheduler config.
	ErrUnresolvedName = errors.New("unresolved name")

	// ErrInsertionConflict marks two insertions resolving to the same
	// destination path with different content within one render.
	ErrInsertionConflict = errors.New("conflicting insertion destination")
)
