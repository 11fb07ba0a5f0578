// Package archive implements an append-only driver.Driver on a single zip file.
//
// Keys are the entry names of the archive. A key can be written exactly once,
// writing it again or deleting any key fails with driver.ErrReadOnly.
//
// The zip format has its directory at the end of the file, so a write rebuilds
// the container: all existing entries are copied raw (zip.Writer.Copy) into a
// temporary file, the new entry is appended and the result is renamed over the
// original. Readers that are open while this happens keep reading the previous
// version until they are closed.
package archive
