package testhelpers

import (
	"net/http"

	"github.com/jarcoal/httpmock"
)

// SetupHTTPMock initializes httpmock, activates it, and returns a cleanup function.
// This ensures consistent setup/teardown across tests.
func SetupHTTPMock() func() {
	httpmock.Activate()
	return func() {
		httpmock.DeactivateAndReset()
	}
}

// MockWordlist serves body at url. HEAD is registered as well because the HTTP getter
// may probe the file before downloading it.
func MockWordlist(url, body string) {
	httpmock.RegisterResponder(http.MethodHead, url, httpmock.NewStringResponder(http.StatusOK, ""))
	httpmock.RegisterResponder(http.MethodGet, url, httpmock.NewStringResponder(http.StatusOK, body))
}

// MockWordlistMissing answers url with 404.
func MockWordlistMissing(url string) {
	httpmock.RegisterResponder(http.MethodHead, url, httpmock.NewStringResponder(http.StatusNotFound, ""))
	httpmock.RegisterResponder(http.MethodGet, url, httpmock.NewStringResponder(http.StatusNotFound, "not found"))
}

// WordlistCallCount returns how many GET requests url received.
func WordlistCallCount(url string) int {
	return httpmock.GetCallCountInfo()[http.MethodGet+" "+url]
}
