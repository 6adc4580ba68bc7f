// Package config defines the format-agnostic manifest model and the Loader
// interface implemented by concrete manifest formats such as internal/hcl.
package config
