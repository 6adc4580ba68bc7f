package config

import "github.com/vk/ecow/internal/model"

// Manifest is the result of evaluating one or more manifest files.
type Manifest struct {
	// Root is the absolute directory that declaration directories and part
	// inputs are relative to.
	Root string
	// Files lists the manifest files that were read, in read order.
	Files []string
	// Units holds the declarations in the order they were found: file order
	// first, then block order within a file. This order becomes the
	// registration order.
	Units []*model.Declaration
}
