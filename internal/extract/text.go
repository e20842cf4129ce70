package extract

import (
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/nao1215/sitespider/internal/output"
)

// writeText writes a text artifact after checking it is valid UTF-8.
// Invalid text is logged and skipped; only I/O failures are returned.
func writeText(out *output.Layout, dir, name, text string, errs *slog.Logger) error {
	if _, _, err := transform.String(encoding.UTF8Validator, text); err != nil {
		errs.Error("text artifact skipped: invalid encoding", "dir", dir, "file", name, "error", err)
		return nil
	}
	_, err := out.WriteFile(dir, name, []byte(text))
	return err
}
