package transform

import (
	"github.com/evanw/esbuild/pkg/api"
)

// raw turns the contents into a module whose default export is the text.
type raw struct{}

func newRaw(map[string]any, *Registry) (Transformer, error) {
	return raw{}, nil
}

func (raw) Apply(src Source) (Source, error) {
	src.Contents = "export default " + jsString(src.Contents) + ";\n"
	src.Loader = api.LoaderJS
	return src, nil
}
