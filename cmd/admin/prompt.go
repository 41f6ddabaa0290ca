// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var (
	errPasswordsMismatch = errors.New("admin: passwords do not match")
	errPasswordMissing   = errors.New("admin: ADMIN_PASSWORD is required when stdin is not a terminal")
)

// readNewPassword asks for the password twice on a terminal, or reads ADMIN_PASSWORD.
func readNewPassword(stdin *os.File, out io.Writer) (string, error) {
	fd := int(stdin.Fd())
	if !isTerminal(fd) {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			return "", errPasswordMissing
		}
		return password, nil
	}

	first, err := prompt(fd, out, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := prompt(fd, out, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordsMismatch
	}
	return first, nil
}

func prompt(fd int, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	password, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("admin: read password: %w", err)
	}
	return string(password), nil
}
