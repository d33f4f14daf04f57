// Package holdings turns institutional holdings disclosures into comparable,
// auditable portfolio snapshots.
//
// The core functionalities include:
//   - Snapshots: the immutable holdings of one fund at one quarter end, as
//     parsed from a 13F information table (see package filing).
//   - Diff: the classified, ordered changes between two snapshots of a fund.
//   - Events: position changes disclosed by Schedule 13D/G and Form 4 filings,
//     attributed to a tracked fund of the Roster.
//   - Merge: a synthesized "current" snapshot, folding the events disclosed
//     after the latest filed snapshot. It diffs like any other snapshot.
//   - Persistence: snapshots and events are stored as human-readable,
//     version-controllable JSONL files.
//
// CUSIP to ticker resolution lives in package ticker, fetching from EDGAR in
// package edgar, and batch ingestion in package ingest. This package serves as
// the foundational logic for the `hft` command-line tool.
package holdings
