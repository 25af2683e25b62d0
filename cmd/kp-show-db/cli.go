// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbx4"
)

// FileSystem defines the interface for the file system operations this tool
// needs, so tests can substitute an in-memory implementation.
type FileSystem interface {
	Open(name string) (io.ReadCloser, error)
	ReadFile(name string) ([]byte, error)
}

// DefaultFileSystem implements FileSystem using the os package.
type DefaultFileSystem struct{}

func (d *DefaultFileSystem) Open(name string) (io.ReadCloser, error) { return os.Open(name) }
func (d *DefaultFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

const usage = `
USAGE:
    kp-show-db [-k keyfile] <database.kdbx>

Opens a KDBX4 database and prints its group/entry tree. Prompts for the
database password on stdin; press enter for no password.
`

// CLI represents the kp-show-db command-line application.
type CLI struct {
	Args     []string
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Terminal Terminal
	FS       FileSystem
	ExitFunc func(code int)
	StdinFd  int
}

// Run parses c.Args and executes the show-db command, returning the process
// exit code.
func (c *CLI) Run() int {
	var keyfilePath, dbPath string

	args := c.Args
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help", "help":
			fmt.Fprint(c.Stderr, usage)
			return 0
		case "-k", "--keyfile":
			if i+1 >= len(args) {
				fmt.Fprintln(c.Stderr, "kp-show-db: -k requires a path")
				return 1
			}
			keyfilePath = args[i+1]
			i++
		default:
			if dbPath != "" {
				fmt.Fprint(c.Stderr, usage)
				return 1
			}
			dbPath = args[i]
		}
	}

	if dbPath == "" {
		fmt.Fprint(c.Stderr, usage)
		return 1
	}

	key, err := c.buildKey(keyfilePath)
	if err != nil {
		fmt.Fprintf(c.Stderr, "kp-show-db: %v\n", err)
		return 1
	}
	defer key.Close()

	f, err := c.FS.Open(dbPath)
	if err != nil {
		fmt.Fprintf(c.Stderr, "kp-show-db: %v\n", err)
		return 1
	}
	defer f.Close()

	db, err := kdbx4.Open(f, key)
	if err != nil {
		fmt.Fprintf(c.Stderr, "kp-show-db: %v\n", err)
		return 1
	}

	c.printTree(db)
	return 0
}

func (c *CLI) buildKey(keyfilePath string) (kdbx4.DatabaseKey, error) {
	fmt.Fprint(c.Stderr, "Password: ")
	passwordBytes, err := c.Terminal.ReadPassword(c.StdinFd)
	fmt.Fprintln(c.Stderr)
	if err != nil {
		return kdbx4.DatabaseKey{}, fmt.Errorf("reading password: %w", err)
	}

	key := kdbx4.DatabaseKey{Password: passwordBytes}

	if keyfilePath != "" {
		content, err := c.FS.ReadFile(keyfilePath)
		if err != nil {
			return kdbx4.DatabaseKey{}, fmt.Errorf("reading keyfile: %w", err)
		}
		hash, err := kdbx4.LoadKeyFile(content)
		if err != nil {
			return kdbx4.DatabaseKey{}, fmt.Errorf("parsing keyfile: %w", err)
		}
		key.KeyFileHash = hash
	}

	return key, nil
}

func (c *CLI) printTree(db *kdbx4.Database) {
	fmt.Fprintf(c.Stdout, "%s\n", db.Meta.DatabaseName)
	c.printGroup(db.Root, 0)
}

func (c *CLI) printGroup(g *kdbx4.Group, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(c.Stdout, "%s[%s]\n", indent, g.Name)
	for _, child := range g.Children {
		switch n := child.(type) {
		case *kdbx4.Group:
			c.printGroup(n, depth+1)
		case *kdbx4.Entry:
			username := ""
			if v, ok := n.Fields.Get(kdbx4.FieldUserName); ok {
				username = v.Reveal()
			}
			fmt.Fprintf(c.Stdout, "%s  %s (%s)\n", indent, n.Title(), username)
		}
	}
}
