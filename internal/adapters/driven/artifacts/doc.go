// Package artifacts writes extracted documents to disk next to their sources.
//
// An artifact keeps the source name and adds the ".det" suffix, so
// "report.pdf" is written to "report.pdf.det". The rendering is chosen
// once, when the store is created.
package artifacts
