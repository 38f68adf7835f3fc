// Package all wires the built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs each backend's init function, which registers its factory and
// DDL bootstrapper with the storage package. A binary that needs only one
// backend can import that backend directly instead.
package all

import (
	_ "bulkingest/internal/storage/postgres"
	_ "bulkingest/internal/storage/sqlite"
)
