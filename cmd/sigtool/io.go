package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/agenthands/attendance/internal/core/model"
)

// readSignatures loads a JSON array of signatures. "-" reads stdin.
func readSignatures(path string, stdin io.Reader) ([]model.Signature, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var sigs []model.Signature
	if err := json.NewDecoder(r).Decode(&sigs); err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	return sigs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
