// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbx4"
)

const usage = `
USAGE:
    kp-get-version <database.kdbx>

Prints the KDBX major.minor version of a database without decrypting it.
`

func main() {
	if len(os.Args) != 2 || os.Args[1] == "help" || os.Args[1] == "--help" || os.Args[1] == "-h" {
		fmt.Fprint(os.Stderr, usage)
		if len(os.Args) != 2 {
			os.Exit(1)
		}
		return
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "kp-get-version: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	minor, err := kdbx4.ReadMagicAndVersion(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kp-get-version: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("4.%d\n", minor)
}
