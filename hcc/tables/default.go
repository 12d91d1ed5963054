package tables

import (
	"context"
	"embed"
	"io"
	"path"
	"sync"
)

//go:embed data
var packagedData embed.FS

// packagedSource serves the table data compiled into the binary.
type packagedSource struct{}

func (packagedSource) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	return packagedData.Open(path.Join("data", name))
}

func (packagedSource) String() string {
	return "packaged"
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the packaged table data, shared
// across callers. The packaged data covers every supported model; failing
// to parse it is a build defect, so Default panics rather than returning an
// error.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(context.Background(), packagedSource{})
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}
