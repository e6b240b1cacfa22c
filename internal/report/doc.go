// Package report turns finished histograms into summaries, PNG plots and
// HTML pixel maps for inspection after a scan.
package report
