// Package extractor reads track records out of a rendered results listing.
// It navigates a browser session to the listing, locates the results table by
// class and tag, and appends one record per table row, in document order, to a
// track appender. The first missing element or failed write ends the run.
package extractor
