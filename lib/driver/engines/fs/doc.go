// Package fs implements driver.Driver on a directory tree through afero.
//
// Writes go to a hidden temporary file in the target directory which is renamed
// onto the key when the writer is closed, so readers never observe partial values.
// A ttl is accepted but ignored, the filesystem has no expiry.
package fs
