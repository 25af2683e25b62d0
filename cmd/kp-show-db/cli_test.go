// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbx4"
)

// MockTerminal implements Terminal for testing.
type MockTerminal struct {
	Password []byte
	Err      error
}

func (m *MockTerminal) ReadPassword(fd int) ([]byte, error) {
	return m.Password, m.Err
}

// MockFileSystem implements FileSystem backed by an in-memory file map.
type MockFileSystem struct {
	Files map[string][]byte
}

func (m *MockFileSystem) Open(name string) (io.ReadCloser, error) {
	content, ok := m.Files[name]
	if !ok {
		return nil, &notFoundError{name}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	content, ok := m.Files[name]
	if !ok {
		return nil, &notFoundError{name}
	}
	return content, nil
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return e.name + ": no such file" }

func buildTestDatabaseBytes(t *testing.T, password string) []byte {
	t.Helper()
	db := kdbx4.NewDatabase(kdbx4.DefaultConfig(), "Test Database")
	entry := kdbx4.NewEntry()
	entry.Fields.Set(kdbx4.FieldTitle, kdbx4.UnprotectedValue("Email"))
	entry.Fields.Set(kdbx4.FieldUserName, kdbx4.UnprotectedValue("alice"))
	entry.Fields.Set(kdbx4.FieldPassword, kdbx4.ProtectedValue("hunter2"))
	if err := kdbx4.AddChild(db.Root, entry); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	var buf bytes.Buffer
	if err := db.Save(&buf, kdbx4.DatabaseKey{Password: []byte(password)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return buf.Bytes()
}

func TestCLIShowsGroupsAndEntries(t *testing.T) {
	dbBytes := buildTestDatabaseBytes(t, "correct horse")

	var stdout, stderr bytes.Buffer
	cli := &CLI{
		Args:     []string{"db.kdbx"},
		Stdout:   &stdout,
		Stderr:   &stderr,
		Terminal: &MockTerminal{Password: []byte("correct horse")},
		FS:       &MockFileSystem{Files: map[string][]byte{"db.kdbx": dbBytes}},
	}

	code := cli.Run()
	if code != 0 {
		t.Fatalf("Run() = %d, want 0; stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Email") {
		t.Errorf("output missing entry title: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "alice") {
		t.Errorf("output missing username: %s", stdout.String())
	}
	if strings.Contains(stdout.String(), "hunter2") {
		t.Errorf("output must not reveal the password: %s", stdout.String())
	}
}

func TestCLIWrongPasswordFails(t *testing.T) {
	dbBytes := buildTestDatabaseBytes(t, "correct horse")

	var stdout, stderr bytes.Buffer
	cli := &CLI{
		Args:     []string{"db.kdbx"},
		Stdout:   &stdout,
		Stderr:   &stderr,
		Terminal: &MockTerminal{Password: []byte("wrong")},
		FS:       &MockFileSystem{Files: map[string][]byte{"db.kdbx": dbBytes}},
	}

	if code := cli.Run(); code == 0 {
		t.Fatalf("Run() = 0, want a non-zero exit code for a wrong password")
	}
}

func TestCLIMissingArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cli := &CLI{
		Args:     nil,
		Stdout:   &stdout,
		Stderr:   &stderr,
		Terminal: &MockTerminal{},
		FS:       &MockFileSystem{Files: map[string][]byte{}},
	}

	if code := cli.Run(); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "USAGE") {
		t.Errorf("expected usage text on stderr, got: %s", stderr.String())
	}
}

func TestCLIMissingFilePrintsError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cli := &CLI{
		Args:     []string{"missing.kdbx"},
		Stdout:   &stdout,
		Stderr:   &stderr,
		Terminal: &MockTerminal{Password: []byte("pw")},
		FS:       &MockFileSystem{Files: map[string][]byte{}},
	}

	if code := cli.Run(); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "missing.kdbx") {
		t.Errorf("expected an error naming the missing file on stderr, got: %s", stderr.String())
	}
}
