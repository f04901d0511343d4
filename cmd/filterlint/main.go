// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command filterlint lints adblock filter lists.
//
// Usage:
//
//	filterlint [files...]
//	filterlint lists/
//	filterlint fix --dry-run lists/base.txt
//	filterlint --watch lists/
//
// With no arguments the current directory is linted. Configuration is
// discovered from a .filterlintrc file in the working directory or any
// ancestor.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
