// Package classifier routes a learner's message to one of four handling
// modes: retrieval, conversational, session-memory or platform-action.
//
// Classification runs in stages. Regular-expression rules always run
// first and are enough for most messages. A session-memory check catches
// short back-references ("what did you say?") when there is history.
// When the rules are unsure, a semantic stage compares the message
// embedding against exemplar sentences for each mode and, for retrieval,
// confirms that the knowledge index actually holds relevant material.
//
// The semantic stage is best effort: any embedder or index failure is
// logged and the rule result is returned.
package classifier
