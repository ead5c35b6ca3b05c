// Package config loads minicc.toml.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"tlog.app/go/errors"

	"minicc/pkg/compiler"
)

// FileName is looked up in the working directory when no path is given.
const FileName = "minicc.toml"

type (
	Config struct {
		Compiler Compiler
		Output   Output
	}

	Compiler struct {
		ForwardRefs bool
		Underscore  bool
		Comments    bool
		DropUnused  bool
	}

	Output struct {
		// Extension of the assembly file, with the dot.
		Extension string
		// Dir is where assembly files go. Empty means next to the source.
		Dir string
	}
)

// tomlFile is the file as it is encoded. Pointers tell unset keys from
// false or empty ones.
type tomlFile struct {
	Compiler *tomlCompiler `toml:"compiler"`
	Output   *tomlOutput   `toml:"output"`
}

type tomlCompiler struct {
	ForwardRefs *bool `toml:"forward-refs"`
	Underscore  *bool `toml:"underscore"`
	Comments    *bool `toml:"comments"`
	DropUnused  *bool `toml:"drop-unused"`
}

type tomlOutput struct {
	Extension *string `toml:"extension"`
	Dir       *string `toml:"dir"`
}

func Default() *Config {
	o := compiler.DefaultOptions()

	return &Config{
		Compiler: Compiler{
			ForwardRefs: o.ForwardRefs,
			Underscore:  o.Underscore,
			Comments:    o.Comments,
			DropUnused:  o.DropUnused,
		},
		Output: Output{
			Extension: ".s",
		},
	}
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "config %v", path)
	}

	return c, nil
}

// Parse decodes TOML data over the defaults.
func Parse(data []byte) (*Config, error) {
	var f tomlFile

	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	c := Default()

	if tc := f.Compiler; tc != nil {
		setBool(&c.Compiler.ForwardRefs, tc.ForwardRefs)
		setBool(&c.Compiler.Underscore, tc.Underscore)
		setBool(&c.Compiler.Comments, tc.Comments)
		setBool(&c.Compiler.DropUnused, tc.DropUnused)
	}

	if to := f.Output; to != nil {
		if to.Extension != nil {
			c.Output.Extension = *to.Extension
		}
		if to.Dir != nil {
			c.Output.Dir = *to.Dir
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	ext := c.Output.Extension

	switch {
	case ext == "":
		return errors.New("output extension is empty")
	case !strings.HasPrefix(ext, "."):
		return errors.New("output extension %q must start with a dot", ext)
	case strings.ContainsAny(ext, `/\`):
		return errors.New("output extension %q contains a path separator", ext)
	}

	return nil
}

func (c *Config) Options() compiler.Options {
	return compiler.Options{
		ForwardRefs: c.Compiler.ForwardRefs,
		Underscore:  c.Compiler.Underscore,
		Comments:    c.Compiler.Comments,
		DropUnused:  c.Compiler.DropUnused,
	}
}

// OutputPath gives the assembly file name for source file src.
func (c *Config) OutputPath(src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + c.Output.Extension

	if c.Output.Dir != "" {
		return filepath.Join(c.Output.Dir, base)
	}

	return filepath.Join(filepath.Dir(src), base)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
