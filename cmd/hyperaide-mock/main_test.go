package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/hyperaide-sync/mockapi"
)

func TestMerge_FlagsWinOverFile(t *testing.T) {
	cmd := newRootCmd(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := cmd.ParseFlags([]string{"--db", "flag.db", "--token", "b"}); err != nil {
		t.Fatal(err)
	}

	file := mockapi.Config{Tokens: []string{"a"}, DB: "file.db", APIAddr: ":9000"}
	flags := mockapi.Config{Tokens: []string{"b"}, DB: "flag.db", APIAddr: "localhost:4000", WelcomeAddr: "localhost:3000"}
	merge(&file, flags, cmd)

	if file.DB != "flag.db" {
		t.Errorf("db = %q, want flag value", file.DB)
	}
	if file.APIAddr != ":9000" {
		t.Errorf("api addr = %q, want file value", file.APIAddr)
	}
	if file.WelcomeAddr != "localhost:3000" {
		t.Errorf("welcome addr = %q, want default", file.WelcomeAddr)
	}
	if len(file.Tokens) != 2 {
		t.Errorf("tokens = %v, want both", file.Tokens)
	}
}
