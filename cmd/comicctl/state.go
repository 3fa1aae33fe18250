package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nkiryanov/comictracker/internal/client/session"
)

const (
	sessionFile = "session.json"
	cookieFile  = "cookie.json"
)

// Files kept between runs: access token and refresh cookie
type state struct {
	dir string
}

func (s state) tokens() *session.FileStore {
	return session.NewFileStore(filepath.Join(s.dir, sessionFile))
}

type cookieContent struct {
	RefreshToken string `json:"refresh_token"`
}

func (s state) refreshCookie() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, cookieFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var c cookieContent
	if err := json.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("cookie file is broken. Err: %w", err)
	}
	return c.RefreshToken, nil
}

func (s state) saveRefreshCookie(value string) error {
	path := filepath.Join(s.dir, cookieFile)
	if value == "" {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(cookieContent{RefreshToken: value})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
