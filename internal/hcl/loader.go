package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/ecow/internal/config"
	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/fsutil"
	"github.com/vk/ecow/internal/model"
)

const fileExtension = ".hcl"

// Loader implements config.Loader for HCL manifests.
type Loader struct {
	env map[string]string
}

var _ config.Loader = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithEnv replaces the process environment exposed to manifests as env.
func WithEnv(env map[string]string) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// NewLoader creates a Loader. By default manifests see the process
// environment.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.env == nil {
		l.env = processEnv()
	}
	return l
}

// Load reads every manifest found at paths. A directory is searched
// recursively for .hcl files. The manifest root is the first path if it is a
// directory, or the directory of the first file otherwise.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no manifest path given")
	}

	root, err := manifestRoot(paths[0])
	if err != nil {
		return nil, err
	}

	files, err := l.collectFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", fileExtension, strings.Join(paths, ", "))
	}

	m := &config.Manifest{Root: root, Files: files}
	parser := hclparse.NewParser()
	evalCtx := newEvalContext(l.env)

	for _, path := range files {
		decls, err := l.decodeFile(ctx, parser, evalCtx, root, path)
		if err != nil {
			return nil, err
		}
		m.Units = append(m.Units, decls...)
	}

	logger.Debug("Manifests loaded.", "root", root, "files", len(files), "units", len(m.Units))
	return m, nil
}

func (l *Loader) collectFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("manifest path: %w", err)
		}

		found := []string{abs}
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(abs, fileExtension)
			if err != nil {
				return nil, fmt.Errorf("searching %s: %w", abs, err)
			}
		}
		for _, f := range found {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	return files, nil
}

func (l *Loader) decodeFile(ctx context.Context, parser *hclparse.Parser, evalCtx *hcl.EvalContext, root, path string) ([]*model.Declaration, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding manifest file.", "path", path)

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}

	var mf manifestFile
	diags = gohcl.DecodeBody(file.Body, evalCtx, &mf)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}

	dir, err := relativeDir(root, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	decls := make([]*model.Declaration, 0, len(mf.Units))
	for _, ub := range mf.Units {
		decls = append(decls, translateUnit(ub, path, dir))
	}
	logger.Debug("Successfully decoded manifest file.", "path", path, "units_found", len(decls))
	return decls, nil
}

// translateUnit converts the HCL-specific unit schema into the agnostic model.
func translateUnit(ub *unitBlock, source, dir string) *model.Declaration {
	d := &model.Declaration{
		Name:   ub.Name,
		Kind:   ub.Kind,
		Deps:   ub.Wsdep,
		Source: source,
		Dir:    dir,
		Parts:  make([]model.PartDecl, 0, len(ub.Parts)),
	}
	for _, pb := range ub.Parts {
		d.Parts = append(d.Parts, model.PartDecl{
			Name:   pb.Name,
			Kind:   pb.Kind,
			Inputs: pb.Inputs,
		})
	}
	return d
}

func manifestRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("manifest path: %w", err)
	}
	if info.IsDir() {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}

func relativeDir(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("manifest directory %s is outside the manifest root %s", dir, root)
	}
	return rel, nil
}
