package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tokendrop/internal/model"
)

// ExportClaimsJSONL appends claim records to a JSONL file, one per line.
// Used by the history command's --out flag.
func ExportClaimsJSONL(path string, claims []model.Claim) error {
	if len(claims) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, claim := range claims {
		line, err := json.Marshal(claim)
		if err != nil {
			return fmt.Errorf("marshal claim: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write claim: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
