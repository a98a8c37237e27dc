package variants

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5/util"
)

// Manifest maps a source filename to its variants keyed "800" / "800_webp".
type Manifest map[string]map[string]string

// Failure records a source that could not be processed.
type Failure struct {
	Source string
	Err    error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Source, f.Err) }

// Batch is the outcome of processing several sources.
type Batch struct {
	Manifest  Manifest
	Processed []string
	Failed    []Failure
}

// Batch generates variants for every source. A source that fails is recorded
// in Failed and does not stop the others.
func (e *Engine) Batch(sources []string, destDir string) Batch {
	res := Batch{Manifest: make(Manifest)}
	for _, src := range sources {
		vs, err := e.Generate(src, destDir)
		if err != nil {
			e.log.Warn().Err(err).Str("source", src).Msg("skipping image")
			res.Failed = append(res.Failed, Failure{Source: src, Err: err})
			continue
		}
		entry := make(map[string]string, len(vs))
		for _, v := range vs {
			entry[v.Key()] = v.Path
		}
		res.Manifest[path.Base(src)] = entry
		res.Processed = append(res.Processed, src)
		e.log.Info().Str("source", src).Int("variants", len(vs)).Msg("processed image")
	}
	return res
}

// Sources lists supported images directly inside dir, sorted by name.
func (e *Engine) Sources(dir string) ([]string, error) {
	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, fi := range entries {
		if fi.Mode().IsRegular() && IsSupported(fi.Name()) {
			out = append(out, path.Join(dir, fi.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Write stores the manifest as indented JSON at name.
func (m Manifest) Write(e *Engine, name string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return err
	}
	if err := e.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return util.WriteFile(e.fs, name, buf.Bytes(), 0o644)
}
