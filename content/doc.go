// Package content defines the publishable entities (posts, portfolio
// items, their taxonomy and comments) and the persistence contract they
// share.
//
// Many-to-many associations (content to category, content to tag) are
// persisted as explicit junction records {content_id, content_type,
// related_id} on every backend. The document backend has no join support,
// so the relational backends mirror the same denormalized shape to keep
// observable behavior identical.
package content
