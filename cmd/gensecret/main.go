package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const SecretKeyBytesLen = 32

// Prints lines ready for '.env' file: access and refresh token secrets
func main() {
	if err := printSecrets(os.Stdout, rand.Reader); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}
}

func printSecrets(w io.Writer, random io.Reader) error {
	access, err := newSecret(random)
	if err != nil {
		return err
	}
	refresh, err := newSecret(random)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "ACCESS_TOKEN_SECRET=%s\nREFRESH_TOKEN_SECRET=%s\n", access, refresh)
	return err
}

func newSecret(random io.Reader) (string, error) {
	b := make([]byte, SecretKeyBytesLen)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
