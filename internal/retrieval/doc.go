// Package retrieval implements the domain-aware multi-collection
// retrieval and ranking engine.
//
// A response cycle flows through the package top to bottom: the Registry
// snapshots accessor and count state for every configured collection, the
// Advisor turns the task's type and metadata into routing directives,
// SelectCollections narrows the snapshot through its fallback ladder, the
// Aggregator fans the query out and merges results under one ranking
// policy, and the Guard validates regulated content before anything is
// handed to the generation backend.
package retrieval
