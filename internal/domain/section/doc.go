// Package section contains the core domain types of the installer.
//
// A Section is one named, independently installable unit of a manifest.
// State names the steps a section passes through while it is executed.
package section
