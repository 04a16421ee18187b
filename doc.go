// Package juxfix prepares and verifies JUnit XML test fixtures for
// exercising test-result-processing tools.
//
// A fixture tree moves through three stages: raw reports are enriched with
// jux.* provenance properties, enriched reports receive an enveloped XMLDSig
// signature, and any stage can be validated for well-formedness and XSD
// conformance. This package holds the per-document operations; the batch
// subpackage drives them over a directory tree and the provenance subpackage
// collects the default metadata.
package juxfix
