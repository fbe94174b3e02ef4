package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/chainregbot/core/telegram/netutil"
)

const (
	apiRetries = 3
	pollGrace  = 5 * time.Second
)

// BuildHTTPClient returns the client for Bot API calls. getUpdates holds
// the response open for the long-poll timeout, so the header deadline must
// outlast it.
func BuildHTTPClient(longPollSeconds int) *http.Client {
	hold := longPollTimeout(longPollSeconds) + pollGrace
	return netutil.NewHTTPClient(netutil.ClientOptions{
		Retries:         apiRetries,
		ResponseTimeout: hold,
		Timeout:         hold + pollGrace,
	})
}
