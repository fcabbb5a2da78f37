package ports

// SchemaSource resolves schema URLs to local documents.
type SchemaSource interface {
	// ToLocalPath maps a schema URL to a local resource path. The second
	// return value is false when the URL cannot be served locally.
	ToLocalPath(url string) (string, bool)

	// Fetch reads the raw document at a local path.
	Fetch(path string) ([]byte, error)
}
