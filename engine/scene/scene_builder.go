package scene

// SceneBuilderOption is a functional option for Build.
// Use the With* functions to create options.
type SceneBuilderOption func(b *builder)

// WithLoadWorkers bounds how many mesh files are read concurrently. Defaults to runtime.NumCPU().
//
// Parameters:
//   - n: the number of concurrent loads (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLoadWorkers(n int) SceneBuilderOption {
	return func(b *builder) {
		if n < 1 {
			n = 1
		}
		b.loadWorkers = n
	}
}

// WithBaseDir resolves relative mesh paths against dir, usually the configuration file's directory.
//
// Parameters:
//   - dir: the base directory
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBaseDir(dir string) SceneBuilderOption {
	return func(b *builder) {
		b.baseDir = dir
	}
}
