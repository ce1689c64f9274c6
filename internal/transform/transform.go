// Package transform turns a source file into a registry.CodeFile: it pulls
// out the package declaration and import lines and strips top-level public
// qualifiers so that many files can share one compilation unit.
//
// The rewrite is textual. In the default naive mode every line is matched by
// prefix and, once a rule matches, every occurrence of its qualifier on that
// line is replaced, exactly like the single-file tools this replaces. Tokenized mode
// runs a small lexer alongside and only touches lines that begin in
// top-level code, leaving comment and text-block contents alone.
package transform

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding/unicode"
	textransform "golang.org/x/text/transform"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/language"
	"github.com/conneroisu/srcmerge/internal/registry"
)

// Mode selects the rewrite strategy.
type Mode int

const (
	// ModeNaive applies prefix rules to every line.
	ModeNaive Mode = iota
	// ModeTokenized applies rules only to lines starting in top-level code.
	ModeTokenized
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNaive:
		return "naive"
	case ModeTokenized:
		return "tokenized"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "naive":
		return ModeNaive, nil
	case "tokenized":
		return ModeTokenized, nil
	default:
		return ModeNaive, fmt.Errorf("unknown rewrite mode %q", s)
	}
}

// Options configures a Transformer.
type Options struct {
	Mode Mode
	// CacheSize bounds the memo of parsed contents; 0 disables it.
	CacheSize int
}

// Parsed is the content-derived part of a CodeFile.
type Parsed struct {
	Package string
	Imports []string
	Content string
}

type cacheEntry struct {
	data   []byte
	parsed Parsed
}

// Transformer converts files for one language profile. It is safe for
// concurrent use.
type Transformer struct {
	profile  language.Profile
	dialect  language.Dialect
	mode     Mode
	crcTable *crc32.Table
	cache    *lru.Cache[string, cacheEntry]
}

// New creates a Transformer for profile.
func New(profile language.Profile, opts Options) (*Transformer, error) {
	t := &Transformer{
		profile:  profile,
		dialect:  language.DialectOf(profile),
		mode:     opts.Mode,
		crcTable: crc32.MakeTable(crc32.Castagnoli),
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, cacheEntry](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating transform cache: %w", err)
		}
		t.cache = cache
	}

	return t, nil
}

// Profile returns the language profile the transformer was built for.
func (t *Transformer) Profile() language.Profile {
	return t.profile
}

// Transform reads path from disk and returns a fresh CodeFile. On failure
// the returned error is a read error and no record is produced.
func (t *Transformer) Transform(path string) (*registry.CodeFile, error) {
	key := registry.Key(path)

	data, err := os.ReadFile(key)
	if err != nil {
		return nil, mergeerrors.WrapRead(err, mergeerrors.ErrCodeFileOpen, key)
	}

	file := t.TransformBytes(key, data)

	if info, err := os.Stat(key); err == nil {
		file.ModTime = info.ModTime()
	}

	return file, nil
}

// TransformBytes builds a CodeFile for path from data without touching disk.
func (t *Transformer) TransformBytes(path string, data []byte) *registry.CodeFile {
	hash := fmt.Sprintf("%08x", crc32.Checksum(data, t.crcTable))

	parsed, ok := t.cached(hash, data)
	if !ok {
		parsed = t.Parse(decode(data))
		if t.cache != nil {
			t.cache.Add(hash, cacheEntry{data: bytes.Clone(data), parsed: parsed})
		}
	}

	return &registry.CodeFile{
		Path:    registry.Key(path),
		Package: parsed.Package,
		Imports: append([]string(nil), parsed.Imports...),
		Content: parsed.Content,
		Hash:    hash,
	}
}

func (t *Transformer) cached(hash string, data []byte) (Parsed, bool) {
	if t.cache == nil {
		return Parsed{}, false
	}
	entry, ok := t.cache.Get(hash)
	if !ok || !bytes.Equal(entry.data, data) {
		return Parsed{}, false
	}
	return entry.parsed, true
}

// Parse applies the line rules to already decoded text. Imports are rebuilt
// from scratch on every call.
func (t *Transformer) Parse(text string) Parsed {
	var (
		result  Parsed
		body    strings.Builder
		seen    = make(map[string]struct{})
		lex     lexer
		keyword = t.dialect.PackageKeyword() + " "
	)

	for _, line := range splitLines(text) {
		ruleApplies := t.mode == ModeNaive || lex.atTopLevel()
		if t.mode == ModeTokenized {
			lex.feed(line)
		}

		switch {
		case ruleApplies && strings.HasPrefix(line, keyword):
			result.Package = t.packageName(line)
		case ruleApplies && t.profile.IsImportLine(line):
			if _, dup := seen[line]; !dup {
				seen[line] = struct{}{}
				result.Imports = append(result.Imports, line)
			}
		default:
			if ruleApplies {
				line = t.rewrite(line)
			}
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}

	result.Content = body.String()
	return result
}

func (t *Transformer) packageName(line string) string {
	name := strings.TrimSpace(strings.TrimPrefix(line, t.dialect.PackageKeyword()))
	if term := t.dialect.StatementTerminator(); term != "" {
		name = strings.TrimSpace(strings.TrimSuffix(name, term))
	}
	return name
}

// rewrite applies the first rule whose qualifier starts the line. Naive mode
// then replaces every occurrence on that line; tokenized mode only the prefix.
func (t *Transformer) rewrite(line string) string {
	for _, rw := range t.dialect.VisibilityRewrites() {
		if !strings.HasPrefix(line, rw.From) {
			continue
		}
		if t.mode == ModeNaive {
			return strings.ReplaceAll(line, rw.From, rw.To)
		}
		return rw.To + line[len(rw.From):]
	}
	return line
}

// decode strips a UTF-8 BOM and converts UTF-16 (BOM-marked) input to UTF-8.
// Anything else passes through untouched, so files in the platform's
// single-byte encoding survive byte for byte.
func decode(data []byte) string {
	out, _, err := textransform.Bytes(unicode.BOMOverride(textransform.Nop), data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// splitLines normalizes CRLF and CR line endings and splits text into
// lines. A trailing newline does not produce an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
