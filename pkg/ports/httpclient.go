package ports

import "net/http"

// HTTPDoer abstracts the outbound HTTP transport used by the http trigger.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
