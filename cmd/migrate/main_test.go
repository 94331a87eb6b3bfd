package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pawcircle/pawcircle-backend/pkg/migrate"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if opts.cmd != "up" || opts.root != migrate.RootDir {
		t.Fatalf("expected up against %s, got %s against %s", migrate.RootDir, opts.cmd, opts.root)
	}
}

func TestParseFlagsRequiresCommandArguments(t *testing.T) {
	for _, args := range [][]string{
		{"-cmd", "create"},
		{"-cmd", "version"},
		{"-cmd", "redo"},
	} {
		if _, err := parseFlags(args, io.Discard); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestRunCreateThenValidateWithoutDatabase(t *testing.T) {
	root := t.TempDir()

	if err := run(context.Background(), options{cmd: "create", root: root, name: "add pet profiles"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := run(context.Background(), options{cmd: "validate", root: root}); err != nil {
		t.Fatalf("validate: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(root, "*", "*_add_pet_profiles.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected one file per dialect, got %v", matches)
	}

	if err := os.Remove(matches[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := run(context.Background(), options{cmd: "validate", root: root}); err == nil {
		t.Fatal("expected validate to fail once a dialect is missing a file")
	}
}
