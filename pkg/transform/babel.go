package transform

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// babel downlevels modern syntax. ES module syntax is kept for the bundler.
type babel struct {
	target api.Target
}

func newBabel(options map[string]any, _ *Registry) (Transformer, error) {
	name, err := stringOption(options, "target", "es2015")
	if err != nil {
		return nil, err
	}
	target, ok := targets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported target '%s'", name)
	}
	return &babel{target: target}, nil
}

// Lower downlevels a JavaScript program to ES2015, the syntax embedded
// runtimes such as goja accept.
func Lower(code string) (string, error) {
	out, err := (&babel{target: api.ES2015}).Apply(Source{Contents: code, Loader: api.LoaderJS})
	if err != nil {
		return "", err
	}
	return out.Contents, nil
}

func (b *babel) Apply(src Source) (Source, error) {
	loader := src.Loader
	if loader == api.LoaderNone {
		loader = api.LoaderJS
	}

	result := api.Transform(src.Contents, api.TransformOptions{
		Target:     b.target,
		Format:     api.FormatDefault,
		Loader:     loader,
		Sourcefile: src.Path,
	})

	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		loc := ""
		if msg.Location != nil {
			loc = fmt.Sprintf(" at line %d, column %d", msg.Location.Line, msg.Location.Column)
		}
		return Source{}, fmt.Errorf("syntax error%s: %s", loc, msg.Text)
	}

	src.Contents = string(result.Code)
	src.Loader = api.LoaderJS
	return src, nil
}

// loaderFor picks the initial loader for a file by extension.
func loaderFor(path string) api.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".jsx":
		return api.LoaderJSX
	case ".tsx":
		return api.LoaderTSX
	case ".css":
		return api.LoaderCSS
	case ".json":
		return api.LoaderJSON
	default:
		return api.LoaderJS
	}
}
