// Package sync detects changes in the mirrored remote storage account.
//
// Each pass fetches the full provider listing, diffs it against the local
// shadow records by path, and classifies every difference as new, changed, or
// deleted. New and changed files get an import chain enqueued; deleted files
// get their pending imports cancelled and a removal scheduled. Path renames
// are not tracked: a rename surfaces as one deletion plus one new file.
package sync
