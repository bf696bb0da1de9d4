package resources

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// MinifyCSS minifies a stylesheet. name is only used in error messages.
func MinifyCSS(name, src string) (string, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       name,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LogLevel:         api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		var errMsg strings.Builder
		for _, err := range result.Errors {
			if err.Location != nil {
				fmt.Fprintf(&errMsg, "%s:%d:%d: ", err.Location.File, err.Location.Line, err.Location.Column)
			}
			errMsg.WriteString(err.Text + "\n")
		}
		return "", fmt.Errorf("esbuild errors:\n%s", errMsg.String())
	}
	return string(result.Code), nil
}

// InlineCSS returns a static stylesheet minified for embedding in a
// standalone document.
func InlineCSS(name string) (string, error) {
	src, err := ReadFile(name)
	if err != nil {
		return "", err
	}
	return MinifyCSS(name, string(src))
}
