// Package hcl provides the HCL implementation of config.Loader.
//
// A manifest declares units with nested part blocks:
//
//	unit "jute" {
//	  kind  = "mod"
//	  wsdep = ["hai", "traits"]
//
//	  part "view" {
//	    kind   = "view"
//	    inputs = ["view/**/*.cpp"]
//	  }
//	  part "twine" {
//	    inputs = ["twine.cpp"]
//	  }
//	}
//
// Attribute expressions can read the environment through the env object
// (env.HOME) and call the functions concat, format, join, lower and upper.
package hcl
