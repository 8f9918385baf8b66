// Package state holds the reactive state tree and the Manager that guards it.
//
// The tree root maps keys to records (keyed mappings) or lists
// (insertion-ordered records keyed by a mandatory "id"). Every read and write
// goes through the State, Record and List views:
//
//   - writes fail with ErrLocked unless the manager is unlocked;
//   - writes through read-only views fail with ErrReadOnlyView regardless of
//     the lock;
//   - writing a value structurally equal to the current one is a no-op.
//
// Each accepted write queues change records. Locking the manager again
// flushes the queue, in the order changes happened and without duplicates,
// dispatching one Event per change named "<path>:<kind>":
//
//	state.course:created        root key written
//	course:updated              any field of the course record changed
//	course.title:updated        the title field changed
//	sections:created            an element was added to the sections list
//	sections[4]:created         the element with id 4
//	sections[4].title:deleted   a field of that element was removed
//	sections.title:deleted      same change, addressed for any element
//
// Data flow:
//
//	mutation -> SetLocked(false) -> writes -> SetLocked(true) -> DispatchFunc -> Target
//
// Updates coming from outside (for example a server response) are applied
// with ProcessUpdates, which validates a whole batch before writing and
// publishes it as a single transaction.
package state
