// Package synapse provides a personal "second brain" capture service.
// It fetches web pages or accepts uploaded images, extracts readable text,
// classifies the result into a coarse item type, persists it, and serves
// substring search over everything captured so far.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, ahocorasick/).
package synapse
