// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
)

func main() {
	cli := &CLI{
		Args:     os.Args[1:],
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Terminal: &DefaultTerminal{},
		FS:       &DefaultFileSystem{},
		ExitFunc: os.Exit,
		StdinFd:  int(os.Stdin.Fd()),
	}
	os.Exit(cli.Run())
}
