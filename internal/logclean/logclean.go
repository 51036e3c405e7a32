// Package logclean normalizes the pipeline log once the stages are done.
//
// Tools like Blender and the segmentation scripts print progress bars with
// carriage returns and colored output, the cleaned log keeps only what a
// reader would have seen on the terminal.
package logclean

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/slok/tac2ar/internal/utils/textenc"
)

// maxBlankLines is the number of consecutive blank lines kept.
const maxBlankLines = 1

// Text returns the normalized version of a log text.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = ansi.Strip(s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, l := range lines {
		// A carriage return rewinds the terminal line, only the last write is visible.
		if i := strings.LastIndex(l, "\r"); i >= 0 {
			l = l[i+1:]
		}
		l = strings.TrimRight(l, " \t")

		if l == "" {
			blanks++
			if blanks > maxBlankLines {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, l)
	}

	res := strings.Trim(strings.Join(out, "\n"), "\n")
	if res == "" {
		return ""
	}

	return res + "\n"
}

// File rewrites the log file at path with its normalized content. The file is
// read and written with the given encoding.
func File(path, encodingName string) error {
	enc, err := textenc.Lookup(encodingName)
	if err != nil {
		return fmt.Errorf("invalid log encoding: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("could not stat log file: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read log file: %w", err)
	}

	cleaned := Text(textenc.Decode(raw, enc))

	data, err := textenc.Encoder(enc).Bytes([]byte(cleaned))
	if err != nil {
		return fmt.Errorf("could not encode log file: %w", err)
	}

	if bytes.Equal(data, raw) {
		return nil
	}

	if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("could not write log file: %w", err)
	}

	return nil
}
