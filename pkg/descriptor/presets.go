package descriptor

// Preset names accepted by build files and `ccbuild init`.
const (
	PresetLibrary = "library"
	PresetExample = "example"
)

// LibraryParams returns the static parameters of the widget library build:
// a single-file component published as a UMD bundle under a global name.
func LibraryParams() StaticParams {
	return StaticParams{
		EntryPoints:    []string{"./src/vue-collection-cluster.vue"},
		OutputPath:     "./dist",
		OutputFilename: "vue-collection-cluster.js",
		Library: &LibraryExport{
			Name:   "VueCollectionCluster",
			Format: FormatUMD,
		},
		ResolvableExtensions: []string{".js", ".vue"},
		ModuleAliases: map[string]string{
			// runtime + template compiler build
			"vue$": "vue/dist/vue.common.js",
		},
		TransformRules: []TransformRule{
			{
				Test:    `\.js$`,
				Chain:   []TransformStep{{Name: "babel"}},
				Include: []string{"."},
				Exclude: []string{`node_modules`},
			},
			{
				Test: `\.vue$`,
				Chain: []TransformStep{{
					Name: "vue",
					// <script> blocks get the same downleveling as .js files
					Options: map[string]any{"script": []any{"babel"}},
				}},
				Include: []string{"."},
				Exclude: []string{`node_modules`},
			},
		},
	}
}

// ExampleParams returns the static parameters of the example application
// that consumes the widget.
func ExampleParams() StaticParams {
	return StaticParams{
		EntryPoints:          []string{"./src/main.js"},
		OutputPath:           "./dist",
		OutputFilename:       "build.js",
		PublicPath:           "/dist/",
		ResolvableExtensions: []string{".js", ".vue"},
		TransformRules: []TransformRule{
			{
				Test: `\.vue$`,
				Chain: []TransformStep{{
					Name: "vue",
					Options: map[string]any{
						"preserveWhitespace": false,
						"script":             []any{"babel"},
					},
				}},
			},
			{
				Test:    `\.js$`,
				Chain:   []TransformStep{{Name: "babel"}},
				Exclude: []string{`node_modules`},
			},
		},
		DevServer: DevServer{
			HistoryFallback: true,
			Port:            9000,
			VerboseLogging:  false,
		},
	}
}

// Preset returns the static parameters registered under name.
func Preset(name string) (StaticParams, bool) {
	switch name {
	case PresetLibrary:
		return LibraryParams(), true
	case PresetExample:
		return ExampleParams(), true
	default:
		return StaticParams{}, false
	}
}
